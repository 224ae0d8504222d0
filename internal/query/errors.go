package query

import "fmt"

// InvalidFilterError records a filter value that was present but outside its domain.
// The builder ignores such values; callers can inspect them via Builder.Issues.
type InvalidFilterError struct {
	Filter string
	Value  any
	Reason string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid %s filter %v: %s", e.Filter, e.Value, e.Reason)
}
