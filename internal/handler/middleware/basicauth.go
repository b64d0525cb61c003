package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Niraj-Kamdar/datastore/internal/service"
	"github.com/Niraj-Kamdar/datastore/pkg/response"
)

const ContextKeyUser = "current_user"

// BasicAuth authenticates every request with HTTP Basic credentials against
// the user table and stores the resolved user in the request context.
func BasicAuth(users service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="datastore"`)
			response.Unauthorized(c, "missing credentials")
			c.Abort()
			return
		}

		user, err := users.Authenticate(c.Request.Context(), email, password)
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, "User not found")
			c.Abort()
			return
		case errors.Is(err, service.ErrInvalidCredentials):
			c.Header("WWW-Authenticate", `Basic realm="datastore"`)
			response.Unauthorized(c, "Incorrect email or password")
			c.Abort()
			return
		case err != nil:
			response.InternalError(c, "authentication failed")
			c.Abort()
			return
		}

		c.Set(ContextKeyUser, user)
		c.Next()
	}
}
