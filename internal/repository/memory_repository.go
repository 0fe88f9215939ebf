package repository

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/userdir/user-service/shared/models"
)

// InMemoryUserRepository implements UserRepository using in-memory storage.
// Useful for testing and development.
type InMemoryUserRepository struct {
	mu     sync.RWMutex
	users  map[int64]models.User
	nextID int64
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[int64]models.User),
	}
}

func (r *InMemoryUserRepository) Find(ctx context.Context, filter ListFilter) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.matching(filter.Search)
	start := filter.skip()
	if start >= len(matched) {
		return []models.User{}, nil
	}
	end := len(matched)
	if filter.Limit > 0 && filter.Limit < end-start {
		end = start + filter.Limit
	}
	return matched[start:end], nil
}

func (r *InMemoryUserRepository) Count(ctx context.Context, search string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.matching(search))), nil
}

// matching returns users matching search, newest first. Callers hold r.mu.
func (r *InMemoryUserRepository) matching(search string) []models.User {
	needle := strings.ToLower(search)
	ids := make([]int64, 0, len(r.users))
	for id, u := range r.users {
		if needle == "" ||
			strings.Contains(strings.ToLower(u.Name), needle) ||
			strings.Contains(strings.ToLower(u.Email), needle) ||
			strings.Contains(strings.ToLower(u.Address), needle) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.users[id])
	}
	return out
}

func (r *InMemoryUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	n, ok := parseSequenceID(id)
	if !ok {
		return nil, ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, exists := r.users[n]
	if !exists {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *InMemoryUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *InMemoryUserRepository) Insert(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(u.Email, 0) {
		return ErrDuplicateEmail
	}
	r.nextID++
	u.ID = strconv.FormatInt(r.nextID, 10)
	r.users[r.nextID] = *u
	return nil
}

func (r *InMemoryUserRepository) UpdateByID(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	n, ok := parseSequenceID(id)
	if !ok {
		return nil, ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, exists := r.users[n]
	if !exists {
		return nil, ErrNotFound
	}
	if patch.Email != nil && r.emailTaken(*patch.Email, n) {
		return nil, ErrDuplicateEmail
	}
	patch.Apply(&u)
	r.users[n] = u
	return &u, nil
}

func (r *InMemoryUserRepository) DeleteByID(ctx context.Context, id string) error {
	n, ok := parseSequenceID(id)
	if !ok {
		return ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[n]; !exists {
		return ErrNotFound
	}
	delete(r.users, n)
	return nil
}

func (r *InMemoryUserRepository) ValidID(id string) bool {
	_, ok := parseSequenceID(id)
	return ok
}

func (r *InMemoryUserRepository) CanonicalID(id string) (string, bool) {
	return canonicalSequenceID(id)
}

func (r *InMemoryUserRepository) Ping(ctx context.Context) error { return nil }

// emailTaken reports whether a user other than except holds email. Callers hold r.mu.
func (r *InMemoryUserRepository) emailTaken(email string, except int64) bool {
	for id, u := range r.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}
