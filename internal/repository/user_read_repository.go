package repository

import (
	"context"

	"github.com/userdir/user-service/shared/models"
)

// UserViewNamespace prefixes user view keys in the cache.
const UserViewNamespace = "user:view"

// ViewCache is the read-model store in front of the repository, keyed by user
// id. shared/redis.ViewCache[models.User] satisfies it.
type ViewCache interface {
	Get(ctx context.Context, id string) (*models.User, bool)
	Set(ctx context.Context, id string, value *models.User)
	Delete(ctx context.Context, id string)
}

// NopViewCache never stores anything. Used when Redis is not configured.
type NopViewCache struct{}

func (NopViewCache) Get(context.Context, string) (*models.User, bool) { return nil, false }
func (NopViewCache) Set(context.Context, string, *models.User)        {}
func (NopViewCache) Delete(context.Context, string)                   {}

// UserReadRepository serves single-user reads from the view cache, falling
// back to the store on a miss. Listings always go to the store.
type UserReadRepository struct {
	store UserRepository
	cache ViewCache
}

func NewUserReadRepository(store UserRepository, cache ViewCache) *UserReadRepository {
	if cache == nil {
		cache = NopViewCache{}
	}
	return &UserReadRepository{store: store, cache: cache}
}

// GetByID returns a user from the cache first, then the store.
func (r *UserReadRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := r.cache.Get(ctx, r.viewKey(id)); ok {
		return u, nil
	}

	u, err := r.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Warm the cache
	r.CacheUserView(ctx, u)
	return u, nil
}

func (r *UserReadRepository) Find(ctx context.Context, filter ListFilter) ([]models.User, error) {
	return r.store.Find(ctx, filter)
}

func (r *UserReadRepository) Count(ctx context.Context, search string) (int64, error) {
	return r.store.Count(ctx, search)
}

func (r *UserReadRepository) ValidID(id string) bool {
	return r.store.ValidID(id)
}

// viewKey names the cache entry for id. Every accepted spelling of an id maps
// to the same key.
func (r *UserReadRepository) viewKey(id string) string {
	if canonical, ok := r.store.CanonicalID(id); ok {
		return canonical
	}
	return id
}

// CacheUserView stores or refreshes the read model for a user.
// Called by the command service after every mutation.
func (r *UserReadRepository) CacheUserView(ctx context.Context, u *models.User) {
	r.cache.Set(ctx, r.viewKey(u.ID), u)
}

// InvalidateUserView removes the read model entry for a deleted user.
func (r *UserReadRepository) InvalidateUserView(ctx context.Context, userID string) {
	r.cache.Delete(ctx, r.viewKey(userID))
}
