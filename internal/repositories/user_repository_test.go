package repositories_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"userhub/internal/logging"
	"userhub/internal/models"
	"userhub/internal/repositories"
	"userhub/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGORMRepo(t *testing.T) repositories.UserRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open(database.Config{Driver: "sqlite", DSN: dsn}, logging.Discard(), &models.User{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return repositories.NewGORMUserRepository(db)
}

// Both implementations must honour the same contract.
func implementations() map[string]func(t *testing.T) repositories.UserRepository {
	return map[string]func(t *testing.T) repositories.UserRepository{
		"gorm": newGORMRepo,
		"memory": func(*testing.T) repositories.UserRepository {
			return repositories.NewInMemoryUserRepository()
		},
	}
}

func strPtr(s string) *string { return &s }

func seed(t *testing.T, repo repositories.UserRepository, names ...string) []models.User {
	t.Helper()
	users := make([]models.User, 0, len(names))
	for _, name := range names {
		u := models.User{Username: name, Password: "digest-" + name}
		require.NoError(t, repo.Create(context.Background(), &u))
		users = append(users, u)
		// Distinct creation times keep the ordering assertions meaningful.
		time.Sleep(2 * time.Millisecond)
	}
	return users
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	for name, newRepo := range implementations() {
		t.Run(name, func(t *testing.T) {
			repo := newRepo(t)
			ctx := context.Background()

			user := &models.User{Username: "alice1", Password: "digest"}
			require.NoError(t, repo.Create(ctx, user))
			assert.NotZero(t, user.ID)
			assert.False(t, user.CreatedAt.IsZero())

			byID, err := repo.GetByID(ctx, user.ID)
			require.NoError(t, err)
			assert.Equal(t, "alice1", byID.Username)
			assert.Equal(t, "digest", byID.Password)

			byName, err := repo.GetByUsername(ctx, "alice1")
			require.NoError(t, err)
			assert.Equal(t, user.ID, byName.ID)

			_, err = repo.GetByID(ctx, user.ID+100)
			assert.ErrorIs(t, err, repositories.ErrNotFound)
			_, err = repo.GetByUsername(ctx, "nobody")
			assert.ErrorIs(t, err, repositories.ErrNotFound)
		})
	}
}

func TestUserRepository_UniqueUsername(t *testing.T) {
	for name, newRepo := range implementations() {
		t.Run(name, func(t *testing.T) {
			repo := newRepo(t)
			ctx := context.Background()
			users := seed(t, repo, "alice1", "bob22")

			err := repo.Create(ctx, &models.User{Username: "alice1", Password: "x"})
			assert.ErrorIs(t, err, repositories.ErrDuplicateUsername)

			err = repo.Update(ctx, users[1].ID, models.UserChanges{Username: strPtr("alice1")})
			assert.ErrorIs(t, err, repositories.ErrDuplicateUsername)

			_, total, err := repo.List(ctx, models.UserFilter{Limit: 10})
			require.NoError(t, err)
			assert.EqualValues(t, 2, total)
		})
	}
}

func TestUserRepository_List(t *testing.T) {
	for name, newRepo := range implementations() {
		t.Run(name, func(t *testing.T) {
			repo := newRepo(t)
			ctx := context.Background()
			seed(t, repo, "alice1", "bob22", "Alicia", "carol_", "dave%x")

			page, total, err := repo.List(ctx, models.UserFilter{Offset: 0, Limit: 2})
			require.NoError(t, err)
			assert.EqualValues(t, 5, total)
			require.Len(t, page, 2)
			assert.Equal(t, "dave%x", page[0].Username)
			assert.Equal(t, "carol_", page[1].Username)

			page, _, err = repo.List(ctx, models.UserFilter{Offset: 4, Limit: 2})
			require.NoError(t, err)
			require.Len(t, page, 1)
			assert.Equal(t, "alice1", page[0].Username)

			page, total, err = repo.List(ctx, models.UserFilter{Keyword: "ALI", Limit: 10})
			require.NoError(t, err)
			assert.EqualValues(t, 2, total)
			require.Len(t, page, 2)
			assert.Equal(t, "Alicia", page[0].Username)
			assert.Equal(t, "alice1", page[1].Username)

			// LIKE wildcards in the keyword match literally.
			_, total, err = repo.List(ctx, models.UserFilter{Keyword: "%", Limit: 10})
			require.NoError(t, err)
			assert.EqualValues(t, 1, total)
			_, total, err = repo.List(ctx, models.UserFilter{Keyword: "_", Limit: 10})
			require.NoError(t, err)
			assert.EqualValues(t, 1, total)

			page, total, err = repo.List(ctx, models.UserFilter{Offset: 20, Limit: 10})
			require.NoError(t, err)
			assert.EqualValues(t, 5, total)
			assert.Empty(t, page)
		})
	}
}

func TestUserRepository_UpdateAndDelete(t *testing.T) {
	for name, newRepo := range implementations() {
		t.Run(name, func(t *testing.T) {
			repo := newRepo(t)
			ctx := context.Background()
			users := seed(t, repo, "alice1")
			id := users[0].ID

			require.NoError(t, repo.Update(ctx, id, models.UserChanges{Password: strPtr("new-digest")}))
			got, err := repo.GetByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "alice1", got.Username)
			assert.Equal(t, "new-digest", got.Password)

			require.NoError(t, repo.Update(ctx, id, models.UserChanges{Username: strPtr("alice2")}))
			got, err = repo.GetByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "alice2", got.Username)
			assert.Equal(t, "new-digest", got.Password)

			err = repo.Update(ctx, id+100, models.UserChanges{Username: strPtr("ghost1")})
			assert.ErrorIs(t, err, repositories.ErrNotFound)

			affected, err := repo.Delete(ctx, id)
			require.NoError(t, err)
			assert.EqualValues(t, 1, affected)

			affected, err = repo.Delete(ctx, id)
			require.NoError(t, err)
			assert.EqualValues(t, 0, affected)

			_, err = repo.GetByID(ctx, id)
			assert.ErrorIs(t, err, repositories.ErrNotFound)
			assert.NoError(t, repo.Ping(ctx))
		})
	}
}
