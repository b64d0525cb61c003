package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Niraj-Kamdar/datastore/internal/handler/middleware"
	"github.com/Niraj-Kamdar/datastore/internal/model"
)

var ErrNoUser = errors.New("user not found in context")

func getUserFromContext(c *gin.Context) (*model.User, error) {
	val, exists := c.Get(middleware.ContextKeyUser)
	if !exists {
		return nil, ErrNoUser
	}
	user, ok := val.(*model.User)
	if !ok {
		return nil, ErrNoUser
	}
	return user, nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// parseDate accepts the ISO-style datetime formats the query API documents.
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return &t, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
