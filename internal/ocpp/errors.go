package ocpp

import (
	"fmt"
	"strings"
)

// ErrorCode is the closed set of protocol error codes this central system
// emits on a CALLERROR frame.
type ErrorCode string

const (
	CodeNotImplemented          ErrorCode = "NotImplemented"
	CodeFormationViolation      ErrorCode = "FormationViolation"
	CodeTypeConstraintViolation ErrorCode = "TypeConstraintViolation"
	CodeInternalError           ErrorCode = "InternalError"
)

// CallFault is a handler failure destined for the wire as a CALLERROR.
// The dispatch boundary converts every handler error into one of these;
// anything that is not already a CallFault becomes CodeInternalError.
type CallFault struct {
	Code        ErrorCode
	Description string
	Details     map[string]any
}

func (e *CallFault) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// NotImplementedFault reports an unrecognized action name.
func NotImplementedFault(action string) *CallFault {
	return &CallFault{
		Code:        CodeNotImplemented,
		Description: fmt.Sprintf("Action %s not supported", action),
		Details:     map[string]any{},
	}
}

// InternalFault wraps an unexpected failure, typically a persistence error.
func InternalFault(err error) *CallFault {
	return &CallFault{
		Code:        CodeInternalError,
		Description: err.Error(),
		Details:     map[string]any{},
	}
}

// FieldViolation names one offending field in a rejected payload.
type FieldViolation struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ValidationError rejects a payload that fails its message contract. It is
// raised before any persistence side effect.
type ValidationError struct {
	Action     string
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Path, v.Reason))
	}
	return fmt.Sprintf("invalid %s payload: %s", e.Action, strings.Join(parts, "; "))
}

// Fault maps the validation failure onto its wire representation.
func (e *ValidationError) Fault() *CallFault {
	return &CallFault{
		Code:        CodeFormationViolation,
		Description: e.Error(),
		Details:     map[string]any{"violations": e.Violations},
	}
}
