// User HTTP handlers.
//
// This file exposes REST endpoints for directory users:
//   - POST   /users        (create)
//   - GET    /users        (list, paginated, ETag support)
//   - GET    /users/{id}   (fetch)
//   - DELETE /users/{id}   (delete; caller identified by X-User-ID)
//
// and the trusted variant of fetch mounted under /internal when enabled.
//
// Handlers are transport-thin: they validate input, call the service, and
// return either a body or an error. Rendering of errors is left to fail().
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-route-errors/internal/apierror"
	"github.com/tbourn/go-route-errors/internal/domain"
	"github.com/tbourn/go-route-errors/internal/services"
	"github.com/tbourn/go-route-errors/internal/utils"
)

// UserService defines the user operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type UserService interface {
	// Create registers a new member.
	Create(ctx context.Context, username, email string) (*domain.User, error)
	// Get fetches a user by id.
	Get(ctx context.Context, id string) (*domain.User, error)
	// ListPage returns a page of users and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.User, int64, error)
	// Delete removes id on behalf of callerID.
	Delete(ctx context.Context, callerID, id string) error
}

// statsSource is optionally implemented by a UserService to enable ETags.
type statsSource interface {
	Stats(ctx context.Context) (int64, *time.Time, error)
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	userSvc UserService
}

// New constructs Handlers bound to the given service.
func New(userSvc UserService) *Handlers {
	return &Handlers{userSvc: userSvc}
}

// callerID extracts the authenticated caller from Gin context (set by
// upstream middleware), falling back to the X-User-ID header. Unlike
// listing, deletion has no anonymous fallback.
func callerID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c.Request != nil {
		return strings.TrimSpace(c.GetHeader("X-User-ID"))
	}
	return ""
}

//
// DTOs
//

// CreateUserRequest is the JSON payload for creating a user.
type CreateUserRequest struct {
	Username string `json:"username" example:"alice"`
	Email    string `json:"email"    example:"alice@example.com"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListUsersResponse wraps a page of users and pagination information.
type ListUsersResponse struct {
	Users      []domain.User `json:"users"`
	Pagination Pagination    `json:"pagination"`
}

// UsernameData is the payload of a username conflict.
type UsernameData struct {
	Username string `json:"username" example:"alice"`
}

// IDData is the payload of a missing-user error.
type IDData struct {
	ID string `json:"id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// pathUUID returns the :id path param or a 400 when it is not a UUID.
func pathUUID(c *gin.Context) (string, error) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", apierror.BadRequest().WithMessage("user id must be a UUID")
	}
	return id, nil
}

//
// Handlers
//

// CreateUser godoc
// @ID          createUser
// @Summary     Create a user
// @Description Registers a new member. Usernames are case-folded and must be unique.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.CreateUserRequest  true  "Create user payload"
// @Success     201   {object}  domain.User
// @Failure     400   {object}  apierror.ErrorBody  "Invalid payload (with field and reason)"
// @Failure     409   {object}  apierror.ErrorBody  "Username taken (with username)"
// @Failure     500   {object}  apierror.ErrorBody  "Internal error"
// @Router      /users [post]
func (h *Handlers) CreateUser(c *gin.Context) {
	handle(h.createUser)(c)
}

func (h *Handlers) createUser(c *gin.Context) (int, any, error) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return 0, nil, badJSON(err)
	}

	u, err := h.userSvc.Create(c.Request.Context(), req.Username, req.Email)
	if ve, isVE := isValidation(err); isVE {
		return 0, nil, apierror.Attach(bridge.FromFailure(err), *ve)
	}
	if errors.Is(err, services.ErrUsernameTaken) {
		data := UsernameData{Username: services.NormalizeUsername(req.Username)}
		return 0, nil, apierror.Attach(bridge.FromFailure(err), data)
	}
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, u, nil
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List users (paginated)
// @Description Returns a page of users. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Users
// @Produce     json
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.ListUsersResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} apierror.ErrorBody "Internal error"
// @Router      /users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	handle(h.listUsers)(c)
}

func (h *Handlers) listUsers(c *gin.Context) (int, any, error) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if src, isSrc := h.userSvc.(statsSource); isSrc {
		if count, maxTS, err := src.Stats(ctx); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"users:%d:%d:%d:%d"`, count, ts, page, pageSize)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				return http.StatusNotModified, nil, nil
			}
		}
	}

	items, total, err := h.userSvc.ListPage(ctx, page, pageSize)
	if err != nil {
		return 0, nil, err
	}
	totalPages := utils.TotalPages(total, pageSize)
	return http.StatusOK, ListUsersResponse{
		Users: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	}, nil
}

// GetUser godoc
// @ID          getUser
// @Summary     Fetch a user
// @Tags        Users
// @Produce     json
// @Param       id   path     string  true  "User ID (UUID)"  format(uuid)
// @Success     200  {object} domain.User
// @Failure     400  {object} apierror.ErrorBody "Invalid id"
// @Failure     404  {object} apierror.ErrorBody "User not found (with id)"
// @Failure     500  {object} apierror.ErrorBody "Internal error"
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	handle(h.getUser)(c)
}

func (h *Handlers) getUser(c *gin.Context) (int, any, error) {
	id, err := pathUUID(c)
	if err != nil {
		return 0, nil, err
	}
	u, err := h.userSvc.Get(c.Request.Context(), id)
	if errors.Is(err, services.ErrUserNotFound) {
		return 0, nil, apierror.Attach(bridge.FromFailure(err), IDData{ID: id})
	}
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, u, nil
}

// InternalGetUser is GetUser for trusted callers: failures that are not
// already route errors carry an "internal_error" object with the failure's
// text and stack. Mounted only when EXPOSE_INTERNAL_ERRORS is set, and left
// out of the public OpenAPI document.
func (h *Handlers) InternalGetUser(c *gin.Context) {
	handleInternal(func(c *gin.Context) (int, any, error) {
		u, err := h.userSvc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, u, nil
	})(c)
}

// DeleteUser godoc
// @ID          deleteUser
// @Summary     Delete a user
// @Description Members may delete themselves; admins may delete anyone.
// @Tags        Users
// @Param       X-User-ID  header  string  true  "Caller user ID"
// @Param       id         path    string  true  "User ID (UUID)"  format(uuid)
// @Success     204  {string} string "No Content"
// @Failure     400  {object} apierror.ErrorBody "Invalid id"
// @Failure     401  {object} apierror.ErrorBody "Unknown caller"
// @Failure     403  {object} apierror.ErrorBody "Not allowed"
// @Failure     404  {object} apierror.ErrorBody "User not found"
// @Failure     500  {object} apierror.ErrorBody "Internal error"
// @Router      /users/{id} [delete]
func (h *Handlers) DeleteUser(c *gin.Context) {
	handle(h.deleteUser)(c)
}

func (h *Handlers) deleteUser(c *gin.Context) (int, any, error) {
	id, err := pathUUID(c)
	if err != nil {
		return 0, nil, err
	}
	if err := h.userSvc.Delete(c.Request.Context(), callerID(c), id); err != nil {
		return 0, nil, err
	}
	return http.StatusNoContent, nil, nil
}
