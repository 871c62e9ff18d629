package pass

import (
	"errors"
	"fmt"
)

// ErrUnknownPass is returned by Catalog.Lookup for unregistered names.
var ErrUnknownPass = errors.New("unknown pass")

// DuplicatePassError is returned when a pass name is registered twice.
type DuplicatePassError struct {
	Name string
}

func (e *DuplicatePassError) Error() string {
	return fmt.Sprintf("pass %q already registered", e.Name)
}

// FailedError is the failure a pass reports on purpose, as opposed to an
// unexpected error from its implementation.
type FailedError struct {
	Pass   string
	Reason string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("pass %s failed: %s", e.Pass, e.Reason)
}
