package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/readingroom/internal/config"
	"github.com/mrlokans/readingroom/internal/database/users"
	"github.com/mrlokans/readingroom/internal/entities"
)

var (
	ErrValidation   = errors.New("invalid input")
	ErrUserExists   = errors.New("a user with that name already exists")
	ErrUserNotFound = errors.New("no account found with that name")
)

// UserStore is the persistence the service needs.
type UserStore interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uint) (*entities.User, error)
	GetByName(ctx context.Context, name string) (*entities.User, error)
	NameExists(ctx context.Context, name string) (bool, error)
}

// Service handles registration and credential checks.
type Service struct {
	users UserStore
	cost  int
}

// NewService creates a new authentication service.
func NewService(store UserStore, cfg config.Auth) *Service {
	return &Service{users: store, cost: cfg.BcryptCost}
}

// Register creates a user from raw form input. Name and age are trimmed;
// the password is taken as given.
func (s *Service) Register(ctx context.Context, name, ageText, password string) (*entities.User, error) {
	name = strings.TrimSpace(name)
	ageText = strings.TrimSpace(ageText)
	if name == "" || ageText == "" || password == "" {
		return nil, fmt.Errorf("%w: please fill out all required fields", ErrValidation)
	}

	age, err := strconv.Atoi(ageText)
	if err != nil {
		return nil, fmt.Errorf("%w: age must be a number", ErrValidation)
	}

	exists, err := s.users.NameExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	hash, err := HashPassword(password, s.cost)
	if errors.Is(err, ErrPasswordTooLong) {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entities.User{Name: name, Age: age, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration of the same name.
		if errors.Is(err, users.ErrDuplicateName) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Authenticate validates credentials and returns the user.
func (s *Service) Authenticate(ctx context.Context, name, password string) (*entities.User, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return nil, fmt.Errorf("%w: please provide name and password", ErrValidation)
	}

	user, err := s.users.GetByName(ctx, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(ctx context.Context, id uint) (*entities.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}
