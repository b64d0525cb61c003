package repository

import (
	"context"

	"github.com/Niraj-Kamdar/datastore/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}
