package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected failure modes. The dispatch layer never
// panics for these; callers match with errors.Is and present a message.
var (
	ErrAllCredentialsFailed = errors.New("dispatch: all credentials failed")
	ErrRequestMalformed     = errors.New("dispatch: request malformed")
	ErrNoImageReference     = errors.New("dispatch: no image reference in response")
)

// DispatchError wraps a failure with the last raw outcome observed so the
// server side can log status and body detail while callers surface a
// generic message.
type DispatchError struct {
	Err        error
	StatusCode int
	Body       string
	Attempts   int
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch: status=%d attempts=%d: %v", e.StatusCode, e.Attempts, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
