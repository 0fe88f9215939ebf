package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/userdir/user-service/shared/models"
)

const uniqueViolation = "23505"

var userColumns = []string{"id", "name", "age", "email", "address"}

const createUsersTable = `
	CREATE TABLE IF NOT EXISTS users (
		id      BIGSERIAL PRIMARY KEY,
		name    TEXT    NOT NULL,
		age     INTEGER NOT NULL,
		email   TEXT    NOT NULL UNIQUE,
		address TEXT    NOT NULL DEFAULT ''
	)
`

// PostgresUserRepository stores users in a PostgreSQL table. Ids come from a
// BIGSERIAL column, so descending id order is creation order.
type PostgresUserRepository struct {
	db   *sqlx.DB
	psql sq.StatementBuilderType
}

func NewPostgresUserRepository(db *sqlx.DB) *PostgresUserRepository {
	return &PostgresUserRepository{
		db:   db,
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureSchema creates the users table and its email unique constraint if
// they do not exist yet.
func (r *PostgresUserRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) Find(ctx context.Context, filter ListFilter) ([]models.User, error) {
	q := r.psql.Select(userColumns...).From("users")
	if cond := searchCondition(filter.Search); cond != nil {
		q = q.Where(cond)
	}
	q = q.OrderBy("id DESC").Offset(uint64(filter.skip()))
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}
	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *PostgresUserRepository) Count(ctx context.Context, search string) (int64, error) {
	q := r.psql.Select("COUNT(*)").From("users")
	if cond := searchCondition(search); cond != nil {
		q = q.Where(cond)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int64
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return total, nil
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	n, ok := parseSequenceID(id)
	if !ok {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, sq.Eq{"id": n})
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, sq.Eq{"email": email})
}

func (r *PostgresUserRepository) findOne(ctx context.Context, where sq.Eq) (*models.User, error) {
	query, args, err := r.psql.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}
	var user models.User
	err = r.db.GetContext(ctx, &user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) Insert(ctx context.Context, u *models.User) error {
	query, args, err := r.psql.Insert("users").
		Columns("name", "age", "email", "address").
		Values(u.Name, u.Age, u.Email, u.Address).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}
	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&u.ID); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) UpdateByID(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	n, ok := parseSequenceID(id)
	if !ok {
		return nil, ErrNotFound
	}
	set := patchColumns(patch)
	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}

	query, args, err := r.psql.Update("users").
		SetMap(set).
		Where(sq.Eq{"id": n}).
		Suffix("RETURNING " + strings.Join(userColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update: %w", err)
	}
	var user models.User
	err = r.db.QueryRowxContext(ctx, query, args...).StructScan(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) DeleteByID(ctx context.Context, id string) error {
	n, ok := parseSequenceID(id)
	if !ok {
		return ErrNotFound
	}
	query, args, err := r.psql.Delete("users").Where(sq.Eq{"id": n}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepository) ValidID(id string) bool {
	_, ok := parseSequenceID(id)
	return ok
}

func (r *PostgresUserRepository) CanonicalID(id string) (string, bool) {
	return canonicalSequenceID(id)
}

func (r *PostgresUserRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// searchCondition matches search literally inside name, email or address.
func searchCondition(search string) sq.Sqlizer {
	if search == "" {
		return nil
	}
	pattern := "%" + escapeLike(search) + "%"
	return sq.Or{
		sq.ILike{"name": pattern},
		sq.ILike{"email": pattern},
		sq.ILike{"address": pattern},
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func patchColumns(p models.UserPatch) map[string]any {
	set := map[string]any{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Age != nil {
		set["age"] = *p.Age
	}
	if p.Email != nil {
		set["email"] = *p.Email
	}
	if p.Address != nil {
		set["address"] = *p.Address
	}
	return set
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
