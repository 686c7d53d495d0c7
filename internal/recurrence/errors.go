package recurrence

import "errors"

var (
	// ErrNoFutureOccurrence is returned when the next occurrence would fall
	// past the pattern's end date: the pattern is exhausted.
	ErrNoFutureOccurrence = errors.New("no future occurrence")

	// ErrScheduleStalled is returned when the calculator cannot produce a
	// date strictly after the anchor within the bounded retry budget.
	ErrScheduleStalled = errors.New("schedule failed to advance")
)

// ValidationError reports a structurally invalid pattern, naming the
// offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "pattern: " + e.Field + ": " + e.Reason
}
