package task

import (
	"strings"

	taskerrors "github.com/abatilo/autotask/internal/errors"
)

// lookup maps text to an enum value by position in names.
func lookup[T ~uint8](field string, names []string, s string) (T, error) {
	for i, name := range names {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return T(i), nil
		}
	}
	return 0, taskerrors.ValidationError{Field: field, Reason: taskerrors.ReasonInvalidEnum, Value: s}
}

// name returns the text form of v, or "" when v is outside names.
func name[T ~uint8](names []string, v T) string {
	if int(v) < len(names) {
		return names[v]
	}
	return ""
}

func marshal[T ~uint8](field string, names []string, v T) ([]byte, error) {
	s := name(names, v)
	if s == "" {
		return nil, taskerrors.ValidationError{Field: field, Reason: taskerrors.ReasonInvalidEnum}
	}
	return []byte(s), nil
}
