package cmderr

import (
	"fmt"
	"strings"
)

// MultiError aggregates the failures of a fanned-out batch operation. It is
// only constructed for two or more failures; a single failure surfaces
// as-is.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	msgs := make([]string, len(m.Errors))
	for i, err := range m.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%s: %d errors: %s",
		CodeMulti, len(m.Errors), strings.Join(msgs, "; "))
}

// Unwrap supports errors.Is/As over every member.
func (m *MultiError) Unwrap() []error { return m.Errors }

// Multi collapses a failure list: nil for none, the error itself for one,
// a MultiError preserving order for two or more.
func Multi(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return &MultiError{Errors: errs}
	}
}
