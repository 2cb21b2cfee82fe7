package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"bestwishes/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHasher is a deterministic PasswordHasher for tests.
type fakeHasher struct {
	saltErr error
}

func (f *fakeHasher) GenerateSalt() (string, error) {
	if f.saltErr != nil {
		return "", f.saltErr
	}
	return "salt", nil
}

func (f *fakeHasher) Hash(salt, password string) (string, error) {
	return "hash:" + salt + ":" + password, nil
}

func (f *fakeHasher) Compare(hash, salt, password string) error {
	if hash != "hash:"+salt+":"+password {
		return fmt.Errorf("password mismatch")
	}
	return nil
}

// fakeIssuer returns a canned token.
type fakeIssuer struct {
	err error
}

func (f *fakeIssuer) Issue(userID, email string, _ time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-for-" + userID, nil
}

func TestAuthService_SignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user with normalized email", func(t *testing.T) {
		users := newFakeUserRepo()
		svc := NewAuthService(users, &fakeHasher{}, &fakeIssuer{}, time.Hour)

		user, err := svc.SignUp(ctx, "  New@Example.COM ", "longenough", " Sam ", " Lee ")
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", user.Email)
		assert.Equal(t, "Sam", user.FirstName)
		assert.Equal(t, "Lee", user.LastName)
		assert.Equal(t, "salt", user.Salt)
		assert.Equal(t, "hash:salt:longenough", user.PasswordHash)
		assert.NotEmpty(t, user.ID)
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		svc := NewAuthService(newFakeUserRepo(), &fakeHasher{}, &fakeIssuer{}, time.Hour)
		_, err := svc.SignUp(ctx, "not-an-email", "longenough", "", "")
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("rejects short password", func(t *testing.T) {
		svc := NewAuthService(newFakeUserRepo(), &fakeHasher{}, &fakeIssuer{}, time.Hour)
		_, err := svc.SignUp(ctx, "user@example.com", "short", "", "")
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("salt failure surfaces", func(t *testing.T) {
		svc := NewAuthService(newFakeUserRepo(), &fakeHasher{saltErr: errors.New("entropy exhausted")}, &fakeIssuer{}, time.Hour)
		_, err := svc.SignUp(ctx, "user@example.com", "longenough", "", "")
		require.Error(t, err)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	hasher := &fakeHasher{}

	seed := func() *fakeUserRepo {
		return newFakeUserRepo(&domain.User{
			ID:           "user-1",
			Email:        "user@example.com",
			PasswordHash: "hash:salt:correct-password",
			Salt:         "salt",
		})
	}

	t.Run("issues token on valid credentials", func(t *testing.T) {
		svc := NewAuthService(seed(), hasher, &fakeIssuer{}, time.Hour)
		token, user, err := svc.Login(ctx, "User@Example.com", "correct-password")
		require.NoError(t, err)
		assert.Equal(t, "token-for-user-1", token)
		assert.Equal(t, "user-1", user.ID)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc := NewAuthService(seed(), hasher, &fakeIssuer{}, time.Hour)
		_, _, err := svc.Login(ctx, "other@example.com", "correct-password")
		require.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc := NewAuthService(seed(), hasher, &fakeIssuer{}, time.Hour)
		_, _, err := svc.Login(ctx, "user@example.com", "wrong-password")
		require.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("issuer failure surfaces", func(t *testing.T) {
		svc := NewAuthService(seed(), hasher, &fakeIssuer{err: errors.New("no signing key")}, time.Hour)
		_, _, err := svc.Login(ctx, "user@example.com", "correct-password")
		require.Error(t, err)
		require.NotErrorIs(t, err, domain.ErrForbidden)
	})
}
