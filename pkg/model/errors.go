package model

import "fmt"

// InvariantViolationError reports an entity that breaks a field-level rule:
// a blank name, a score outside [0,1], an unknown enum value, or a
// relationship connecting fewer than two dimensions.
type InvariantViolationError struct {
	Entity string // "pattern", "relationship" or "dimension"
	ID     string // entity id, may be empty
	Field  string
	Reason string
}

func (e *InvariantViolationError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("invariant violation: %s %s: %s %s", e.Entity, e.ID, e.Field, e.Reason)
	}
	return fmt.Sprintf("invariant violation: %s: %s %s", e.Entity, e.Field, e.Reason)
}
