package docx

import (
	"errors"
	"fmt"
)

// ErrNotDocx is returned when the input is not an OOXML word-processing package
var ErrNotDocx = errors.New("not a docx document")

// DecodeError reports a failure reading one part of the package.
type DecodeError struct {
	Part  string
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("docx: failed to decode %s: %v", e.Part, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}
