package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Message is the plain envelope used for status responses.
type Message struct {
	Message string `json:"message"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func OK(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Message{Message: message})
}

func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Message{Message: message})
}

func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, Message{Message: message})
}

func NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, Message{Message: message})
}

func Conflict(c *gin.Context, message string) {
	c.JSON(http.StatusConflict, Message{Message: message})
}

func InternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, Message{Message: message})
}
