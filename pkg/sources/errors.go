package sources

import (
	"errors"
	"fmt"
)

// InvalidAuthError means an upstream rejected our credentials. Unlike every
// other failure it must not be swallowed by fallback handling: the operator
// has to fix the configuration.
type InvalidAuthError struct {
	Source string
}

func (e *InvalidAuthError) Error() string {
	return fmt.Sprintf("%s rejected credentials", e.Source)
}

// UnexpectedStatusCodeError means an upstream answered with a status we don't
// handle.
type UnexpectedStatusCodeError struct {
	Source     string
	StatusCode int
}

func (e *UnexpectedStatusCodeError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Source, e.StatusCode)
}

// UnexpectedDataError means an upstream answered 200 but the payload failed a
// sanity check (empty series, all-zero generation, missing current point).
type UnexpectedDataError struct {
	Source string
	Reason string
}

func (e *UnexpectedDataError) Error() string {
	return fmt.Sprintf("%s returned unexpected data: %s", e.Source, e.Reason)
}

// IsRecoverable reports whether err is one of the failures the caller should
// degrade from by carrying over the previous value. Auth failures are not
// recoverable.
func IsRecoverable(err error) bool {
	var authErr *InvalidAuthError
	return !errors.As(err, &authErr)
}
