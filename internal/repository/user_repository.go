package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/userdir/user-service/shared/models"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// ListFilter selects one page of users. An empty Search matches everyone;
// otherwise name, email or address must contain Search, ignoring case.
type ListFilter struct {
	Search string
	Offset int
	Limit  int
}

// skip is Offset with negative values treated as zero.
func (f ListFilter) skip() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}

// UserRepository is the store capability the services depend on. Every
// implementation orders listings by descending id and enforces email
// uniqueness itself, returning ErrDuplicateEmail on a violation.
type UserRepository interface {
	Find(ctx context.Context, filter ListFilter) ([]models.User, error)
	Count(ctx context.Context, search string) (int64, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// Insert stores u and sets u.ID to the generated identifier.
	Insert(ctx context.Context, u *models.User) error
	// UpdateByID applies the supplied patch fields and returns the updated user.
	UpdateByID(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
	DeleteByID(ctx context.Context, id string) error
	// ValidID reports whether id is well-formed for this store.
	ValidID(id string) bool
	// CanonicalID returns the single spelling the store uses for a
	// well-formed id, as found in User.ID.
	CanonicalID(id string) (string, bool)
	Ping(ctx context.Context) error
}

// parseSequenceID accepts canonical positive decimal ids.
func parseSequenceID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 || strconv.FormatInt(n, 10) != id {
		return 0, false
	}
	return n, true
}

func canonicalSequenceID(id string) (string, bool) {
	n, ok := parseSequenceID(id)
	if !ok {
		return "", false
	}
	return strconv.FormatInt(n, 10), true
}
