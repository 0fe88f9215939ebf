package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/userdir/user-service/internal/repository"
	"github.com/userdir/user-service/internal/service"
	"github.com/userdir/user-service/shared/cqrs"
	"github.com/userdir/user-service/shared/events"
	"github.com/userdir/user-service/shared/models"
)

var tracer = otel.Tracer("github.com/userdir/user-service/internal/command")

// UserWriter is the part of the store the command side needs.
type UserWriter interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, u *models.User) error
	UpdateByID(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
	DeleteByID(ctx context.Context, id string) error
	CanonicalID(id string) (string, bool)
}

// ViewUpdater keeps the read model in step with writes.
type ViewUpdater interface {
	CacheUserView(ctx context.Context, u *models.User)
	InvalidateUserView(ctx context.Context, userID string)
}

// EventPublisher emits user lifecycle events; the stream is fixed by the
// publisher.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}

// UserCommandService writes users to the store, then refreshes the read
// model and publishes a lifecycle event. Cache and event failures never fail
// the request.
type UserCommandService struct {
	store     UserWriter
	views     ViewUpdater
	publisher EventPublisher
}

func NewUserCommandService(store UserWriter, views ViewUpdater, publisher EventPublisher) *UserCommandService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &UserCommandService{
		store:     store,
		views:     views,
		publisher: publisher,
	}
}

func (s *UserCommandService) CreateUser(ctx context.Context, cmd cqrs.CreateUserCommand) (user *models.User, err error) {
	ctx, span := tracer.Start(ctx, "UserCommandService.CreateUser")
	defer func() { endSpan(span, err) }()

	fields := service.Normalize(cmd.Input)

	if fields.Email != nil {
		if err := s.ensureEmailFree(ctx, *fields.Email, ""); err != nil {
			return nil, err
		}
	}
	if err := service.ValidateNew(fields); err != nil {
		return nil, err
	}

	user = &models.User{}
	fields.Apply(user)
	if err := s.store.Insert(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, service.ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	s.views.CacheUserView(ctx, user)
	s.publish(ctx, events.UserCreated, events.UserCreatedEvent{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	})
	return user, nil
}

func (s *UserCommandService) UpdateUser(ctx context.Context, cmd cqrs.UpdateUserCommand) (user *models.User, err error) {
	ctx, span := tracer.Start(ctx, "UserCommandService.UpdateUser",
		trace.WithAttributes(attribute.String("user.id", cmd.UserID)))
	defer func() { endSpan(span, err) }()

	id, ok := s.store.CanonicalID(cmd.UserID)
	if !ok {
		return nil, service.ErrInvalidID
	}

	fields := service.Normalize(cmd.Input)

	if fields.Email != nil {
		if err := s.ensureEmailFree(ctx, *fields.Email, id); err != nil {
			return nil, err
		}
	}
	if err := service.ValidatePatch(fields); err != nil {
		return nil, err
	}

	user, err = s.store.UpdateByID(ctx, id, fields.UserPatch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, service.ErrUserNotFound
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, service.ErrEmailExists
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.views.CacheUserView(ctx, user)
	s.publish(ctx, events.UserUpdated, events.UserUpdatedEvent{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	})
	return user, nil
}

func (s *UserCommandService) DeleteUser(ctx context.Context, cmd cqrs.DeleteUserCommand) (err error) {
	ctx, span := tracer.Start(ctx, "UserCommandService.DeleteUser",
		trace.WithAttributes(attribute.String("user.id", cmd.UserID)))
	defer func() { endSpan(span, err) }()

	id, ok := s.store.CanonicalID(cmd.UserID)
	if !ok {
		return service.ErrInvalidID
	}
	if err := s.store.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	s.views.InvalidateUserView(ctx, id)
	s.publish(ctx, events.UserDeleted, events.UserDeletedEvent{UserID: id})
	return nil
}

// ensureEmailFree fails with ErrEmailExists when a user other than ownerID
// already holds email. The store constraint still guards the race between
// this check and the write.
func (s *UserCommandService) ensureEmailFree(ctx context.Context, email, ownerID string) error {
	existing, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if existing.ID != ownerID {
		return service.ErrEmailExists
	}
	return nil
}

func (s *UserCommandService) publish(ctx context.Context, eventType string, data any) {
	if err := s.publisher.Publish(ctx, eventType, data); err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("failed to publish user event")
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
