package service

import (
	"errors"
	"strings"
)

var (
	ErrInvalidID    = errors.New("invalid id")
	ErrEmailExists  = errors.New("email already exists")
	ErrUserNotFound = errors.New("user not found")
)

// FieldError is one violated field constraint.
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

// ValidationError lists every constraint a create or update request violated.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, ", ")
}

// IsValidation reports whether err is a client-side validation failure,
// including a malformed id.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrInvalidID)
}
