package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"userhub/internal/models"
)

// InMemoryUserRepository is an in-memory implementation of UserRepository.
// It enforces the same username uniqueness as the database index.
type InMemoryUserRepository struct {
	users  map[uint]models.User
	nextID uint
	mu     sync.RWMutex
}

// NewInMemoryUserRepository creates a new instance of InMemoryUserRepository.
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users:  make(map[uint]models.User),
		nextID: 1,
	}
}

// Create adds a new user.
func (r *InMemoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.usernameTaken(user.Username, 0) {
		return ErrDuplicateUsername
	}

	now := time.Now()
	user.ID = r.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	r.nextID++
	r.users[user.ID] = *user
	return nil
}

// GetByID returns a user by its ID.
func (r *InMemoryUserRepository) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

// GetByUsername returns a user by exact username.
func (r *InMemoryUserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Username == username {
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

// List returns one page of users, newest first.
func (r *InMemoryUserRepository) List(_ context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keyword := strings.ToLower(filter.Keyword)
	matched := make([]models.User, 0, len(r.users))
	for _, user := range r.users {
		if keyword == "" || strings.Contains(strings.ToLower(user.Username), keyword) {
			matched = append(matched, user)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := min(filter.Offset, len(matched))
	end := len(matched)
	if filter.Limit > 0 {
		end = min(start+filter.Limit, len(matched))
	}
	return matched[start:end], total, nil
}

// Update writes the non-nil fields of changes.
func (r *InMemoryUserRepository) Update(_ context.Context, id uint, changes models.UserChanges) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	if changes.Username != nil {
		if r.usernameTaken(*changes.Username, id) {
			return ErrDuplicateUsername
		}
		user.Username = *changes.Username
	}
	if changes.Password != nil {
		user.Password = *changes.Password
	}
	user.UpdatedAt = time.Now()
	r.users[id] = user
	return nil
}

// Delete removes a user by its ID.
func (r *InMemoryUserRepository) Delete(_ context.Context, id uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return 0, nil
	}
	delete(r.users, id)
	return 1, nil
}

func (r *InMemoryUserRepository) Ping(context.Context) error {
	return nil
}

// usernameTaken must be called with r.mu held.
func (r *InMemoryUserRepository) usernameTaken(username string, exceptID uint) bool {
	for id, user := range r.users {
		if id != exceptID && user.Username == username {
			return true
		}
	}
	return false
}
