package task

import (
	"strings"
	"unicode/utf8"

	taskerrors "github.com/abatilo/autotask/internal/errors"
)

// MinNameLength is the shortest accepted task name, in characters.
const MinNameLength = 3

// ValidateName trims name and checks its length.
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if utf8.RuneCountInString(trimmed) < MinNameLength {
		return "", taskerrors.ValidationError{Field: "name", Reason: taskerrors.ReasonNameTooShort, Value: name}
	}
	return trimmed, nil
}
