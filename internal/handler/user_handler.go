package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Niraj-Kamdar/datastore/internal/service"
	"github.com/Niraj-Kamdar/datastore/pkg/response"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Create registers a new user.
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidEmail):
		response.BadRequest(c, "Invalid email address!")
		return
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		response.BadRequest(c, "Email already registered!")
		return
	case err != nil:
		response.InternalError(c, "failed to create user")
		return
	}

	response.Success(c, user)
}

// Me returns the authenticated user.
func (h *UserHandler) Me(c *gin.Context) {
	user, err := getUserFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}
	response.Success(c, user)
}
