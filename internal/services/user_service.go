package services

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"userhub/internal/models"
	"userhub/internal/repositories"
	"userhub/pkg/apperror"
	"userhub/pkg/response"

	"github.com/sirupsen/logrus"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	RegisteredMessage = "registration succeeded"
)

// OperationRecorder counts service calls by outcome.
type OperationRecorder interface {
	RecordUserOperation(operation string, err error)
}

// ListUsersInput selects a page of users.
type ListUsersInput struct {
	Page    int
	Limit   int
	Keyword string
}

// UpdateUserInput is a partial update; nil or empty fields are left as is.
type UpdateUserInput struct {
	Username *string
	Password *string
}

// DeletedUser identifies a removed account.
type DeletedUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// UserService handles registration, login and user management.
type UserService struct {
	repo      repositories.UserRepository
	hasher    PasswordHasher
	publisher EventPublisher
	recorder  OperationRecorder
	logger    *logrus.Logger
}

// NewUserService creates a new UserService. publisher and recorder may be nil.
func NewUserService(repo repositories.UserRepository, hasher PasswordHasher, publisher EventPublisher, recorder OperationRecorder, logger *logrus.Logger) *UserService {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &UserService{
		repo:      repo,
		hasher:    hasher,
		publisher: publisher,
		recorder:  recorder,
		logger:    logger,
	}
}

// ParseUserID accepts only positive decimal integers.
func ParseUserID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		return 0, apperror.BadRequest("invalid user id")
	}
	return uint(id), nil
}

// Register creates a new account. The lookup is an early exit only; the
// unique index is the final arbiter under concurrent registrations.
func (s *UserService) Register(ctx context.Context, username, password string) (msg string, err error) {
	defer s.observe("register", &err)

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return "", apperror.Conflict("user already exists")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return "", s.internal("failed to look up user", err)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return "", s.internal("failed to register user", err)
	}

	user := &models.User{Username: username, Password: digest}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateUsername) {
			return "", apperror.Conflict("user already exists")
		}
		return "", s.internal("failed to register user", err)
	}

	s.publish(ctx, EventUserRegistered, user)
	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("User registered")
	return RegisteredMessage, nil
}

// Login checks credentials and returns the account's profile. Unknown
// usernames and wrong passwords yield the same fault.
func (s *UserService) Login(ctx context.Context, username, password string) (profile *models.UserProfile, err error) {
	defer s.observe("login", &err)

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.Unauthenticated("invalid username or password")
		}
		return nil, s.internal("failed to look up user", err)
	}
	if !s.hasher.Verify(password, user.Password) {
		return nil, apperror.Unauthenticated("invalid username or password")
	}

	p := user.Profile()
	return &p, nil
}

// List returns one page of profiles matching in.Keyword, newest first.
func (s *UserService) List(ctx context.Context, in ListUsersInput) (env *response.Envelope, err error) {
	defer s.observe("list", &err)

	if in.Page == 0 {
		in.Page = DefaultPage
	}
	if in.Limit == 0 {
		in.Limit = DefaultLimit
	}
	if in.Page < 1 || in.Limit < 1 || in.Limit > MaxLimit {
		return nil, apperror.BadRequest("invalid pagination parameters")
	}

	users, total, err := s.repo.List(ctx, models.UserFilter{
		Keyword: in.Keyword,
		Offset:  (in.Page - 1) * in.Limit,
		Limit:   in.Limit,
	})
	if err != nil {
		return nil, s.internal("failed to list users", err)
	}

	profiles := make([]models.UserProfile, 0, len(users))
	for i := range users {
		profiles = append(profiles, users[i].Profile())
	}

	return response.Paginate(profiles, response.Pagination{
		Page:        in.Page,
		Limit:       in.Limit,
		Total:       total,
		TotalPages:  int(math.Ceil(float64(total) / float64(in.Limit))),
		HasNext:     int64(in.Page)*int64(in.Limit) < total,
		HasPrevious: in.Page > 1,
	}, "users retrieved"), nil
}

// Get returns the profile of one user.
func (s *UserService) Get(ctx context.Context, rawID string) (profile *models.UserProfile, err error) {
	defer s.observe("get", &err)

	id, err := ParseUserID(rawID)
	if err != nil {
		return nil, err
	}
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	p := user.Profile()
	return &p, nil
}

// Update applies a partial update and returns the stored result.
func (s *UserService) Update(ctx context.Context, rawID string, in UpdateUserInput) (profile *models.UserProfile, err error) {
	defer s.observe("update", &err)

	id, err := ParseUserID(rawID)
	if err != nil {
		return nil, err
	}
	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	var changes models.UserChanges
	if in.Username != nil && *in.Username != "" {
		if *in.Username != current.Username {
			taken, err := s.repo.GetByUsername(ctx, *in.Username)
			switch {
			case err == nil && taken.ID != id:
				return nil, apperror.Conflict("username already taken")
			case err != nil && !errors.Is(err, repositories.ErrNotFound):
				return nil, s.internal("failed to look up user", err)
			}
		}
		changes.Username = in.Username
	}
	if in.Password != nil && *in.Password != "" {
		digest, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, s.internal("failed to update user", err)
		}
		changes.Password = &digest
	}
	if changes.Empty() {
		return nil, apperror.BadRequest("nothing to update")
	}

	if err := s.repo.Update(ctx, id, changes); err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicateUsername):
			return nil, apperror.Conflict("username already taken")
		case errors.Is(err, repositories.ErrNotFound):
			return nil, apperror.NotFound("user not found")
		default:
			return nil, s.internal("failed to update user", err)
		}
	}

	updated, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, EventUserUpdated, updated)
	p := updated.Profile()
	return &p, nil
}

// Delete removes one user.
func (s *UserService) Delete(ctx context.Context, rawID string) (deleted *DeletedUser, err error) {
	defer s.observe("delete", &err)

	id, err := ParseUserID(rawID)
	if err != nil {
		return nil, err
	}
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, s.internal("failed to delete user", err)
	}
	if affected == 0 {
		// Someone else removed the row between the lookup and the delete.
		return nil, s.internal("failed to delete user", errors.New("delete affected no rows"))
	}

	s.publish(ctx, EventUserDeleted, user)
	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("User deleted")
	return &DeletedUser{ID: user.ID, Username: user.Username}, nil
}

// Ping reports whether the persistence gateway is reachable.
func (s *UserService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *UserService) find(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, s.internal("failed to look up user", err)
	}
	return user, nil
}

func (s *UserService) internal(message string, cause error) error {
	s.logger.WithError(cause).Error(message)
	return apperror.Internal(message, cause)
}

func (s *UserService) publish(ctx context.Context, eventType string, user *models.User) {
	event := UserEvent{
		Type:       eventType,
		UserID:     user.ID,
		Username:   user.Username,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("event", eventType).Warn("Failed to publish user event")
	}
}

func (s *UserService) observe(operation string, err *error) {
	if s.recorder != nil {
		s.recorder.RecordUserOperation(operation, *err)
	}
}
