package query

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/userdir/user-service/internal/repository"
	"github.com/userdir/user-service/internal/service"
	"github.com/userdir/user-service/shared/cqrs"
	"github.com/userdir/user-service/shared/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 5
	MaxLimit     = 10

	// MaxPage keeps (page-1)*limit inside int for every allowed limit.
	MaxPage = math.MaxInt / MaxLimit
)

var tracer = otel.Tracer("github.com/userdir/user-service/internal/query")

// UserReader is the read side of the store.
type UserReader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Find(ctx context.Context, filter repository.ListFilter) ([]models.User, error)
	Count(ctx context.Context, search string) (int64, error)
	ValidID(id string) bool
}

// UserQueryService answers user listings and single-user lookups.
type UserQueryService struct {
	readRepo UserReader
}

func NewUserQueryService(readRepo UserReader) *UserQueryService {
	return &UserQueryService{readRepo: readRepo}
}

// ListUsers returns one page of users matching q.Search, newest first.
func (s *UserQueryService) ListUsers(ctx context.Context, q cqrs.ListUsersQuery) (page *models.UserPage, err error) {
	q = NormalizeListQuery(q)
	ctx, span := tracer.Start(ctx, "UserQueryService.ListUsers", trace.WithAttributes(
		attribute.Int("page", q.Page),
		attribute.Int("limit", q.Limit),
		attribute.Bool("search", q.Search != ""),
	))
	defer func() { endSpan(span, err) }()

	var (
		users []models.User
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.readRepo.Find(gctx, repository.ListFilter{
			Search: q.Search,
			Offset: (q.Page - 1) * q.Limit,
			Limit:  q.Limit,
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.readRepo.Count(gctx, q.Search)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}

	return &models.UserPage{
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: TotalPages(total, q.Limit),
		Data:       users,
	}, nil
}

// GetUser returns a single user by id.
func (s *UserQueryService) GetUser(ctx context.Context, q cqrs.GetUserQuery) (user *models.User, err error) {
	ctx, span := tracer.Start(ctx, "UserQueryService.GetUser",
		trace.WithAttributes(attribute.String("user.id", q.UserID)))
	defer func() { endSpan(span, err) }()

	if !s.readRepo.ValidID(q.UserID) {
		return nil, service.ErrInvalidID
	}
	user, err = s.readRepo.GetByID(ctx, q.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, service.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// NormalizeListQuery applies the paging defaults: page below 1 becomes 1 and
// page above MaxPage becomes MaxPage, limit below 1 becomes DefaultLimit and
// limit above MaxLimit becomes MaxLimit.
func NormalizeListQuery(q cqrs.ListUsersQuery) cqrs.ListUsersQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

// TotalPages is ceil(total/limit).
func TotalPages(total int64, limit int) int64 {
	if limit <= 0 || total <= 0 {
		return 0
	}
	l := int64(limit)
	return (total + l - 1) / l
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
