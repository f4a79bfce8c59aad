package types

import (
	"errors"
	"fmt"
)

// ValidationError indicates a local, pre-network validation failure on a
// specific field. It never reaches the backend.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// TransportError indicates a network or backend failure on a fetch, upsert,
// or upload. Code carries the collaborator's machine-readable error code when
// available. Re-invoking the same call is always safe; the core performs no
// automatic retry.
type TransportError struct {
	Op    string
	Code  string
	Cause error
}

func (e *TransportError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("transport error: %s (%s): %v", e.Op, e.Code, e.Cause)
	}
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ErrSessionLost indicates the identity was cleared while an operation for it
// was in flight. The operation is abandoned, not failed; callers treat this
// as routine and surface nothing to the user.
var ErrSessionLost = errors.New("session lost")
