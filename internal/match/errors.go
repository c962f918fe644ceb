package match

import "errors"

// Action failure taxonomy. Every engine error wraps exactly one of these;
// the transport layer reports the class name to the offending client.
// None of them mutate match state. Storage errors are the exception in
// severity: the engine surfaces them without broadcasting a state update,
// since the document may no longer match memory.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrIllegalState = errors.New("illegal state")
	ErrStorage      = errors.New("storage error")
)

// ErrorClass returns the taxonomy name for a client-facing error event.
func ErrorClass(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrIllegalState):
		return "illegal_state"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "internal"
	}
}
