package postgres

import (
	"context"
	"testing"
	"time"

	"bestwishes/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	user := func() *domain.User {
		return &domain.User{
			Email:        "new@example.com",
			FirstName:    "Sam",
			LastName:     "Lee",
			PasswordHash: "hash",
			Salt:         "salt",
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs("new@example.com", "Sam", "Lee", "hash", "salt", now, now).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user-uuid-1"))

		repo := NewUserRepository(db)
		u := user()
		require.NoError(t, repo.Create(ctx, u))
		assert.Equal(t, "user-uuid-1", u.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: "23505"})

		repo := NewUserRepository(db)
		err = repo.Create(ctx, user())
		require.ErrorIs(t, err, domain.ErrDuplicateEmail)
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, email`).
			WithArgs("user@example.com").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "email", "first_name", "last_name", "password_hash", "salt", "created_at", "updated_at",
			}).AddRow("user-1", "user@example.com", "Sam", "Lee", "hash", "salt", now, now))

		repo := NewUserRepository(db)
		u, err := repo.GetByEmail(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, "user-1", u.ID)
		assert.Equal(t, "Sam", u.FirstName)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, email`).
			WithArgs("missing@example.com").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "email", "first_name", "last_name", "password_hash", "salt", "created_at", "updated_at",
			}))

		repo := NewUserRepository(db)
		_, err = repo.GetByEmail(ctx, "missing@example.com")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}
