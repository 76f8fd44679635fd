package ocpp

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report violations by json field name, not Go struct field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseReq decodes and validates a request payload against its contract.
// Any failure is a *ValidationError; no persistence may happen before this
// call succeeds.
func ParseReq[T any](action Action, raw json.RawMessage) (*T, error) {
	var req T
	if len(raw) == 0 {
		raw = emptyObject
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, unmarshalViolation(action, err)
	}
	if err := validate.Struct(&req); err != nil {
		return nil, toValidationError(action, err)
	}
	return &req, nil
}

// ValidateRes checks a server-built response against its contract before it
// is encoded, so a bug in a handler can never put a structurally invalid
// response on the wire.
func ValidateRes(action Action, res any) error {
	if err := validate.Struct(res); err != nil {
		return toValidationError(action, err)
	}
	return nil
}

func unmarshalViolation(action Action, err error) *ValidationError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		path := typeErr.Field
		if path == "" {
			path = "(payload)"
		}
		return &ValidationError{
			Action: string(action),
			Violations: []FieldViolation{
				{Path: path, Reason: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value)},
			},
		}
	}
	return &ValidationError{
		Action:     string(action),
		Violations: []FieldViolation{{Path: "(payload)", Reason: err.Error()}},
	}
}

func toValidationError(action Action, err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	violations := make([]FieldViolation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, FieldViolation{
			Path:   fieldPath(fe.Namespace()),
			Reason: violationReason(fe),
		})
	}
	return &ValidationError{Action: string(action), Violations: violations}
}

// fieldPath strips the root struct name from a validator namespace, leaving
// the json path into the payload (e.g. "meterValue[0].sampledValue[1].value").
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func violationReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required field is missing"
	case "oneof":
		return "must be one of " + fe.Param()
	case "numeric":
		return "must be a numeric string"
	case "gte":
		return "must be >= " + fe.Param()
	case "datetime":
		return "must be an RFC3339 timestamp"
	default:
		return "failed " + fe.Tag() + " constraint"
	}
}
