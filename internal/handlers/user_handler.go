package handlers

import (
	"fmt"
	"strings"

	"userhub/internal/services"
	"userhub/pkg/apperror"
	"userhub/pkg/response"
	"userhub/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// TokenHeader carries freshly issued tokens back to the client.
const TokenHeader = "token"

// CredentialsRequest is the body of register and login.
type CredentialsRequest struct {
	Username string `json:"username" validate:"required,min=3,max=20,username"`
	Password string `json:"password" validate:"required,min=6,max=30"`
}

// UpdateUserRequest is a partial update; absent fields are not checked.
type UpdateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=20,username"`
	Password *string `json:"password" validate:"omitempty,min=6,max=30"`
}

// ListUsersQuery is the query string of GET /user.
type ListUsersQuery struct {
	Page    *int   `query:"page" validate:"omitempty,min=1"`
	Limit   *int   `query:"limit" validate:"omitempty,min=1,max=100"`
	Keyword string `query:"keyword" validate:"max=20"`
}

// UserHandler handles HTTP requests for users.
type UserHandler struct {
	users     *services.UserService
	tokens    *services.TokenService
	validator *validation.Validator
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *services.UserService, tokens *services.TokenService, v *validation.Validator) *UserHandler {
	return &UserHandler{
		users:     users,
		tokens:    tokens,
		validator: v,
	}
}

// RegisterRoutes registers the user routes. Everything except register,
// login and analysis goes through auth.
func (h *UserHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	userRoutes := router.Group("/user")
	userRoutes.Post("/register", response.Handle(h.HandleRegister))
	userRoutes.Post("/login", response.Handle(h.HandleLogin))
	userRoutes.Get("/analysis", response.Handle(h.HandleAnalysis))

	userRoutes.Get("/", auth, response.Handle(h.HandleList))
	userRoutes.Get("/:id", auth, response.Handle(h.HandleGet))
	userRoutes.Put("/:id", auth, response.Handle(h.HandleUpdate))
	userRoutes.Delete("/:id", auth, response.Handle(h.HandleDelete))
}

// HandleRegister handles new user registration.
func (h *UserHandler) HandleRegister(c *fiber.Ctx) (any, error) {
	var req CredentialsRequest
	if err := h.validator.BindBody(c, &req); err != nil {
		return nil, err
	}

	msg, err := h.users.Register(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	return response.Success(nil, msg), nil
}

// HandleLogin checks credentials and issues a JWT in the token header.
func (h *UserHandler) HandleLogin(c *fiber.Ctx) (any, error) {
	var req CredentialsRequest
	if err := h.validator.BindBody(c, &req); err != nil {
		return nil, err
	}

	profile, err := h.users.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	token, err := h.tokens.Issue(profile.Identity())
	if err != nil {
		return nil, apperror.Internal("failed to issue token", err)
	}

	c.Set(TokenHeader, token)
	return response.Success(profile, "login succeeded"), nil
}

// HandleAnalysis advances the caller's counter token by one. Without a
// token a new count starts at 1.
func (h *UserHandler) HandleAnalysis(c *fiber.Ctx) (any, error) {
	count := 1
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			return nil, apperror.Unauthenticated("authorization header format must be 'Bearer <token>'")
		}
		previous, err := h.tokens.VerifyCounter(token)
		if err != nil {
			return nil, err
		}
		count = previous + 1
	}

	token, err := h.tokens.IssueCounter(count)
	if err != nil {
		return nil, apperror.Internal("failed to issue token", err)
	}

	c.Set(TokenHeader, token)
	return response.Success(count, "visit counted"), nil
}

// HandleList returns a page of users.
func (h *UserHandler) HandleList(c *fiber.Ctx) (any, error) {
	var q ListUsersQuery
	if err := h.validator.BindQuery(c, &q); err != nil {
		return nil, err
	}

	in := services.ListUsersInput{Keyword: q.Keyword}
	if q.Page != nil {
		in.Page = *q.Page
	}
	if q.Limit != nil {
		in.Limit = *q.Limit
	}
	return h.users.List(c.UserContext(), in)
}

// HandleGet returns one user.
func (h *UserHandler) HandleGet(c *fiber.Ctx) (any, error) {
	profile, err := h.users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	return response.Success(profile, "user retrieved"), nil
}

// HandleUpdate applies a partial update to one user.
func (h *UserHandler) HandleUpdate(c *fiber.Ctx) (any, error) {
	var req UpdateUserRequest
	if err := h.validator.BindBody(c, &req); err != nil {
		return nil, err
	}

	profile, err := h.users.Update(c.UserContext(), c.Params("id"), services.UpdateUserInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}
	return response.Success(profile, "user updated"), nil
}

// HandleDelete removes one user.
func (h *UserHandler) HandleDelete(c *fiber.Ctx) (any, error) {
	deleted, err := h.users.Delete(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	return response.Success(deleted, fmt.Sprintf("user %q deleted", deleted.Username)), nil
}
