package cqrs

// GetUserQuery fetches a single user by ID.
type GetUserQuery struct {
	UserID string
}

// ListUsersQuery fetches one page of users. Zero or out-of-range Page and
// Limit values are replaced by the query service defaults.
type ListUsersQuery struct {
	Page   int
	Limit  int
	Search string
}
