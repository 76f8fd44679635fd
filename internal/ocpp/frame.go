package ocpp

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType is the OCPP-J message type id, the first element of every frame.
type MessageType int

const (
	Call       MessageType = 2
	CallResult MessageType = 3
	CallError  MessageType = 4
)

// ErrMalformedFrame marks input that cannot be trusted to carry a uniqueId.
// Such frames are dropped without a response; answering unparsable input
// risks desynchronizing the request/response correlation.
var ErrMalformedFrame = errors.New("malformed ocpp frame")

var emptyObject = json.RawMessage(`{}`)

// Frame is a decoded OCPP-J envelope. Which fields are set depends on Type:
// Call carries Action and Payload, CallResult carries Payload, CallError
// carries ErrorCode/ErrorDescription/ErrorDetails.
type Frame struct {
	Type     MessageType
	UniqueID string
	Action   string
	Payload  json.RawMessage

	ErrorCode        string
	ErrorDescription string
	ErrorDetails     json.RawMessage
}

// Decode parses a raw socket message into a Frame. Invalid JSON, non-array
// input, arrays shorter than three elements and unknown message type ids all
// return ErrMalformedFrame.
func Decode(raw []byte) (*Frame, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if len(elems) < 3 {
		return nil, fmt.Errorf("%w: %d elements", ErrMalformedFrame, len(elems))
	}

	var typeID int
	if err := json.Unmarshal(elems[0], &typeID); err != nil {
		return nil, fmt.Errorf("%w: message type id is not an integer", ErrMalformedFrame)
	}

	var uniqueID string
	if err := json.Unmarshal(elems[1], &uniqueID); err != nil {
		return nil, fmt.Errorf("%w: uniqueId is not a string", ErrMalformedFrame)
	}

	f := &Frame{UniqueID: uniqueID}

	switch MessageType(typeID) {
	case Call:
		f.Type = Call
		if err := json.Unmarshal(elems[2], &f.Action); err != nil {
			return nil, fmt.Errorf("%w: action is not a string", ErrMalformedFrame)
		}
		// Payload may be absent; treat as empty object.
		if len(elems) >= 4 {
			f.Payload = elems[3]
		} else {
			f.Payload = emptyObject
		}
	case CallResult:
		f.Type = CallResult
		f.Payload = elems[2]
	case CallError:
		f.Type = CallError
		if len(elems) < 5 {
			return nil, fmt.Errorf("%w: call error needs 5 elements", ErrMalformedFrame)
		}
		if err := json.Unmarshal(elems[2], &f.ErrorCode); err != nil {
			return nil, fmt.Errorf("%w: error code is not a string", ErrMalformedFrame)
		}
		if err := json.Unmarshal(elems[3], &f.ErrorDescription); err != nil {
			return nil, fmt.Errorf("%w: error description is not a string", ErrMalformedFrame)
		}
		f.ErrorDetails = elems[4]
	default:
		return nil, fmt.Errorf("%w: unsupported message type id %d", ErrMalformedFrame, typeID)
	}

	return f, nil
}

// EncodeCallResult builds a [3, uniqueId, payload] frame.
func EncodeCallResult(uniqueID string, payload any) ([]byte, error) {
	if payload == nil {
		payload = emptyObject
	}
	return json.Marshal([]any{int(CallResult), uniqueID, payload})
}

// EncodeCallError builds a [4, uniqueId, code, description, details] frame.
func EncodeCallError(uniqueID string, code ErrorCode, description string, details any) ([]byte, error) {
	if details == nil {
		details = emptyObject
	}
	return json.Marshal([]any{int(CallError), uniqueID, string(code), description, details})
}
