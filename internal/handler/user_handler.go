package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/userdir/user-service/internal/service"
	"github.com/userdir/user-service/shared/cqrs"
	"github.com/userdir/user-service/shared/middleware"
	"github.com/userdir/user-service/shared/models"
)

const (
	LivenessMessage = "user service is running"

	msgCreated       = "user created successfully"
	msgUpdated       = "user updated successfully"
	msgDeleted       = "user deleted successfully"
	msgInvalidBody   = "invalid request body"
	msgInternalError = "internal server error"
)

// UserCommander defines the write-side operations used by UserHandler.
type UserCommander interface {
	CreateUser(context.Context, cqrs.CreateUserCommand) (*models.User, error)
	UpdateUser(context.Context, cqrs.UpdateUserCommand) (*models.User, error)
	DeleteUser(context.Context, cqrs.DeleteUserCommand) error
}

// UserQuerier defines the read-side operations used by UserHandler.
type UserQuerier interface {
	ListUsers(context.Context, cqrs.ListUsersQuery) (*models.UserPage, error)
	GetUser(context.Context, cqrs.GetUserQuery) (*models.User, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Pingers checks each dependency in order and returns the first failure.
type Pingers []Pinger

func (ps Pingers) Ping(ctx context.Context) error {
	for _, p := range ps {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// UserHandler routes requests to the command or query service as appropriate.
type UserHandler struct {
	commands UserCommander
	queries  UserQuerier
	health   Pinger
}

type UserResponse struct {
	Message string       `json:"message,omitempty"`
	Data    *models.User `json:"data"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

func NewUserHandler(commands UserCommander, queries UserQuerier, health Pinger) *UserHandler {
	return &UserHandler{commands: commands, queries: queries, health: health}
}

// RegisterRoutes mounts the liveness, readiness and /api/users routes on r.
func (h *UserHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.Liveness)
	r.GET("/health", h.Health)

	users := r.Group("/api/users")
	users.GET("", h.ListUsers)
	users.POST("", h.CreateUser)
	users.GET("/:id", h.GetUser)
	users.PUT("/:id", h.UpdateUser)
	users.DELETE("/:id", h.DeleteUser)
}

func (h *UserHandler) Liveness(c *gin.Context) {
	c.String(http.StatusOK, LivenessMessage)
}

func (h *UserHandler) Health(c *gin.Context) {
	if h.health != nil {
		if err := h.health.Ping(c.Request.Context()); err != nil {
			logger := middleware.RequestLogger(c)
			logger.Error().Err(err).Msg("health check failed")
			c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	page, err := h.queries.ListUsers(c.Request.Context(), cqrs.ListUsersQuery{
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
		Search: c.Query("search"),
	})
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.queries.GetUser(c.Request.Context(), cqrs.GetUserQuery{UserID: c.Param("id")})
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserResponse{Data: user})
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	input, ok := bindInput(c)
	if !ok {
		return
	}

	user, err := h.commands.CreateUser(c.Request.Context(), cqrs.CreateUserCommand{Input: input})
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, UserResponse{Message: msgCreated, Data: user})
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	input, ok := bindInput(c)
	if !ok {
		return
	}

	user, err := h.commands.UpdateUser(c.Request.Context(), cqrs.UpdateUserCommand{
		UserID: c.Param("id"),
		Input:  input,
	})
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserResponse{Message: msgUpdated, Data: user})
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	err := h.commands.DeleteUser(c.Request.Context(), cqrs.DeleteUserCommand{UserID: c.Param("id")})
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: msgDeleted})
}

// bindInput decodes the request body as a JSON object. An empty body is an
// empty object; anything else that is not an object is rejected with 400.
func bindInput(c *gin.Context) (map[string]any, bool) {
	input := map[string]any{}
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return input, true
	}
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		middleware.RespondWithError(c, http.StatusBadRequest, msgInvalidBody)
		return nil, false
	}
	if input == nil {
		input = map[string]any{}
	}
	return input, true
}

// queryInt returns the integer value of a query parameter, or 0 when it is
// missing or not a number so the query service falls back to its defaults.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

func respondWithServiceError(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		details := make([]middleware.ValidationError, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			details = append(details, middleware.ValidationError{
				Field:   f.Field,
				Message: f.Message,
				Type:    f.Tag,
			})
		}
		middleware.RespondWithValidationError(c, ve.Error(), details)
	case errors.Is(err, service.ErrInvalidID), errors.Is(err, service.ErrEmailExists):
		middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		middleware.RespondWithError(c, http.StatusNotFound, err.Error())
	default:
		logger := middleware.RequestLogger(c)
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
		middleware.RespondWithError(c, http.StatusInternalServerError, msgInternalError)
	}
}
