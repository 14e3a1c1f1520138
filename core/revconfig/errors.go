package revconfig

import (
	"errors"
	"fmt"
)

// ErrSerialization is wrapped by every SerializationError.
var ErrSerialization = errors.New("analyzer configuration cannot be serialized")

// SerializationError reports a fragment value the analyzer configuration
// format cannot carry.
type SerializationError struct {
	Fragment string
	// Field is the path of the value in the serialized document.
	Field  string
	Reason string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("fragment %q: field %s: %s", e.Fragment, e.Field, e.Reason)
}

func (e *SerializationError) Unwrap() error {
	return ErrSerialization
}

// MergeConflictError reports two fragments setting a non-overridable field
// to different values.
type MergeConflictError struct {
	Field     string
	Fragments [2]string
	Values    [2]string
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("conflicting %s: fragment %q sets %q, fragment %q sets %q",
		e.Field, e.Fragments[0], e.Values[0], e.Fragments[1], e.Values[1])
}
