package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"gorm.io/gorm"

	"github.com/Niraj-Kamdar/datastore/internal/model"
	"github.com/Niraj-Kamdar/datastore/internal/repository"
	"github.com/Niraj-Kamdar/datastore/pkg/crypto"
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

type UserService interface {
	Register(ctx context.Context, email, password string) (*model.User, error)
	// Authenticate verifies HTTP Basic credentials against the user table.
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) Register(ctx context.Context, email, password string) (*model.User, error) {
	if !emailRegexp.MatchString(email) {
		return nil, ErrInvalidEmail
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailAlreadyRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:          email,
		HashedPassword: hash,
		IsActive:       true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !crypto.CheckPassword(password, user.HashedPassword) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
