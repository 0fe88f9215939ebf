package cqrs

// CreateUserCommand carries the raw request fields; normalization happens in
// the command service.
type CreateUserCommand struct {
	Input map[string]any
}

// UpdateUserCommand applies only the fields present in Input.
type UpdateUserCommand struct {
	UserID string
	Input  map[string]any
}

type DeleteUserCommand struct {
	UserID string
}
