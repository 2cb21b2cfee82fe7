package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bestwishes/internal/delivery/http/helpers"
	"bestwishes/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuthService implements domain.AuthService for tests.
type fakeAuthService struct {
	token string
	err   error
}

func (f *fakeAuthService) SignUp(_ context.Context, email, _, firstName, lastName string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.User{ID: "user-1", Email: email, FirstName: firstName, LastName: lastName}, nil
}

func (f *fakeAuthService) Login(_ context.Context, email, _ string) (string, *domain.User, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.token, &domain.User{ID: "user-1", Email: email}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuthController_SignUp(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svc        *fakeAuthService
		wantStatus int
		wantCode   string
	}{
		{
			name:       "created",
			body:       `{"email":"new@example.com","password":"longenough","first_name":"Sam","last_name":"Lee"}`,
			svc:        &fakeAuthService{},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing email",
			body:       `{"password":"longenough"}`,
			svc:        &fakeAuthService{},
			wantStatus: http.StatusBadRequest,
			wantCode:   helpers.ErrCodeBadRequest,
		},
		{
			name:       "short password",
			body:       `{"email":"new@example.com","password":"short"}`,
			svc:        &fakeAuthService{},
			wantStatus: http.StatusBadRequest,
			wantCode:   helpers.ErrCodeBadRequest,
		},
		{
			name:       "duplicate email",
			body:       `{"email":"taken@example.com","password":"longenough"}`,
			svc:        &fakeAuthService{err: domain.ErrDuplicateEmail},
			wantStatus: http.StatusConflict,
			wantCode:   helpers.ErrCodeConflict,
		},
		{
			name:       "malformed json",
			body:       `{"email":`,
			svc:        &fakeAuthService{},
			wantStatus: http.StatusBadRequest,
			wantCode:   helpers.ErrCodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewAuthController(testLogger(), tt.svc)
			req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			c.SignUp(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			var envelope helpers.APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
			if tt.wantCode != "" {
				require.NotNil(t, envelope.Error)
				assert.Equal(t, tt.wantCode, envelope.Error.Code)
				return
			}
			require.Nil(t, envelope.Error)
			require.NotNil(t, envelope.Data)
		})
	}
}

func TestAuthController_Login(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svc        *fakeAuthService
		wantStatus int
		wantCode   string
	}{
		{
			name:       "ok",
			body:       `{"email":"user@example.com","password":"longenough"}`,
			svc:        &fakeAuthService{token: "jwt-token"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "bad credentials",
			body:       `{"email":"user@example.com","password":"wrongpass"}`,
			svc:        &fakeAuthService{err: domain.ErrForbidden},
			wantStatus: http.StatusUnauthorized,
			wantCode:   helpers.ErrCodeUnauthorized,
		},
		{
			name:       "missing password",
			body:       `{"email":"user@example.com"}`,
			svc:        &fakeAuthService{},
			wantStatus: http.StatusBadRequest,
			wantCode:   helpers.ErrCodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewAuthController(testLogger(), tt.svc)
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			c.Login(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantCode != "" {
				var envelope helpers.APIResponse
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
				require.NotNil(t, envelope.Error)
				assert.Equal(t, tt.wantCode, envelope.Error.Code)
				return
			}
			var success LoginSuccessResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&success))
			assert.Equal(t, "jwt-token", success.Data.Token)
			assert.Equal(t, "Bearer", success.Data.TokenType)
		})
	}
}
