package extraction

import "fmt"

// PeriodError reports a "Period:" value that is not a YYYY-MM range.
// It is the only extraction failure that is not recovered as an empty field.
type PeriodError struct {
	Value string // the offending side of the range
	Cause error
}

func (e *PeriodError) Error() string {
	return fmt.Sprintf("invalid period %q: expected YYYY-MM: %v", e.Value, e.Cause)
}

func (e *PeriodError) Unwrap() error {
	return e.Cause
}
