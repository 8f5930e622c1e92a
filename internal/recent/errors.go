// ABOUTME: Error types returned by the tracker
// ABOUTME: NotViewableError wraps ErrNotViewable for errors.Is checks

package recent

import (
	"errors"
	"fmt"
)

// ErrNotViewable is matched by every NotViewableError.
var ErrNotViewable = errors.New("not viewable")

// NotViewableError is returned when a type token or instance does not satisfy
// the Queryable contract.
type NotViewableError struct {
	Target any
}

func (e *NotViewableError) Error() string {
	if t, ok := e.Target.(EntityType); ok {
		return fmt.Sprintf("entity type %q is not viewable", string(t))
	}
	return fmt.Sprintf("%T is not viewable", e.Target)
}

// Unwrap returns ErrNotViewable.
func (e *NotViewableError) Unwrap() error {
	return ErrNotViewable
}
