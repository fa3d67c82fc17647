package repositories

import (
	"context"
	"errors"

	"userhub/internal/models"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateUsername is returned when a write would break username uniqueness.
	ErrDuplicateUsername = errors.New("username already exists")
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error)
	Update(ctx context.Context, id uint, changes models.UserChanges) error
	// Delete removes the user and reports how many rows were affected.
	Delete(ctx context.Context, id uint) (int64, error)
	Ping(ctx context.Context) error
}
