package types

import "fmt"

// ValidationError marks a rejected entity field. The single request fails,
// no state changes.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
