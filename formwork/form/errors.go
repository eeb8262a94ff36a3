package form

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for bad constructor arguments, bad field
	// registrations and lookups of unknown fields.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidNode is returned when render targets are not element nodes.
	ErrInvalidNode = errors.New("element node expected")
	// ErrNotSubmitted is returned when submitted data is requested from a
	// form that was not submitted with the active request.
	ErrNotSubmitted = fmt.Errorf("%w: form is not submitted", ErrInvalidArgument)
	// ErrMissingValue is returned when a required field has no value in any
	// transport channel of a submitted form.
	ErrMissingValue = fmt.Errorf("%w: missing value", ErrInvalidArgument)
)

// CSRFError is the form error recorded when the submitted CSRF token does not
// match the one issued for the session.
const CSRFError = "CSRF validation failed"

func missingValueError(name string) error {
	return fmt.Errorf("%w for element %q; the form may contain a file element but the enctype=\"multipart/form-data\" attribute is missing", ErrMissingValue, name)
}
