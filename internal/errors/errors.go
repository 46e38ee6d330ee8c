//nolint:revive // Package name intentionally matches stdlib for domain clarity
package errors

import "fmt"

// Validation reasons shared by the task model and the creation validator.
const (
	ReasonNameTooShort   = "name too short"
	ReasonScheduleInPast = "schedule in the past"
	ReasonInvalidEnum    = "invalid enum value"
	ReasonRequired       = "required"
)

// ValidationError indicates user-correctable input.
type ValidationError struct {
	Field  string
	Reason string
	Value  string
}

func (e ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid %s: %s (%q)", e.Field, e.Reason, e.Value)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TaskNotFoundError indicates an operation referenced an unknown task ID.
type TaskNotFoundError struct {
	ID string
}

func (e TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.ID)
}

// AlreadyExistsError indicates an ID collision on insert.
type AlreadyExistsError struct {
	ID string
}

func (e AlreadyExistsError) Error() string {
	return fmt.Sprintf("task already exists: %s", e.ID)
}

// InvalidTransitionError indicates the action is not legal from the task's current status.
type InvalidTransitionError struct {
	ID      string
	Current string
	Action  string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("task %s has status '%s', cannot %s", e.ID, e.Current, e.Action)
}
