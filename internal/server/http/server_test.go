package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vkorchagin/accountd/internal/errs"
	"github.com/vkorchagin/accountd/internal/model"
	"github.com/vkorchagin/accountd/internal/service"
	"github.com/vkorchagin/accountd/internal/token"
)

// stubAccounts lets each test plug in just the operations it exercises.
type stubAccounts struct {
	authenticate     func(ctx context.Context, credential, password string) (model.TokenPair, error)
	register         func(ctx context.Context, in service.RegistrationInput) (*model.Profile, error)
	refreshToken     func(ctx context.Context, refreshToken string) (model.TokenPair, error)
	socialLogin      func(ctx context.Context, provider, providerToken string) (model.TokenPair, error)
	getProfile       func(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	updateCredential func(ctx context.Context, id uuid.UUID, upd service.CredentialUpdate) (service.CredentialUpdateResult, error)
}

var _ service.AccountService = (*stubAccounts)(nil)

func (s *stubAccounts) Authenticate(ctx context.Context, credential, password string) (model.TokenPair, error) {
	return s.authenticate(ctx, credential, password)
}

func (s *stubAccounts) Register(ctx context.Context, in service.RegistrationInput) (*model.Profile, error) {
	return s.register(ctx, in)
}

func (s *stubAccounts) RefreshToken(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	return s.refreshToken(ctx, refreshToken)
}

func (s *stubAccounts) ForgotPassword(context.Context, string) error { return nil }

func (s *stubAccounts) ResetPassword(context.Context, string, string, string) error { return nil }

func (s *stubAccounts) ConfirmEmail(context.Context, uuid.UUID, string, string) error { return nil }

func (s *stubAccounts) ResendConfirmation(context.Context, string) error { return nil }

func (s *stubAccounts) SocialLogin(ctx context.Context, provider, providerToken string) (model.TokenPair, error) {
	return s.socialLogin(ctx, provider, providerToken)
}

func (s *stubAccounts) UpdateCredential(ctx context.Context, id uuid.UUID, upd service.CredentialUpdate) (service.CredentialUpdateResult, error) {
	return s.updateCredential(ctx, id, upd)
}

func (s *stubAccounts) DeleteAccount(context.Context, uuid.UUID) error { return nil }

func (s *stubAccounts) GetAccountInfo(context.Context, uuid.UUID) (*model.AccountInfo, error) {
	return nil, errs.ErrNotFound
}

func (s *stubAccounts) GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	return s.getProfile(ctx, id)
}

func (s *stubAccounts) UpdateProfile(context.Context, uuid.UUID, service.ProfileUpdate) (*model.Profile, error) {
	return nil, errs.ErrNotFound
}

func newTestServer(t *testing.T, accounts *stubAccounts) (*gin.Engine, *token.Issuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	issuer := token.NewIssuer([]byte("test-key"), time.Minute, time.Hour, time.Hour)
	return New(accounts, issuer, zap.NewNop()).Router(), issuer
}

func doJSON(router *gin.Engine, method, path, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleRegister(t *testing.T) {
	id, err := uuid.NewV4()
	require.NoError(t, err)
	accounts := &stubAccounts{
		register: func(_ context.Context, in service.RegistrationInput) (*model.Profile, error) {
			require.Equal(t, "jane@example.com", in.Email)
			require.Equal(t, "Jane", in.FirstName)
			return model.NewProfile(id, "janedoe", in.Email, in.FirstName, in.LastName)
		},
	}
	router, _ := newTestServer(t, accounts)

	w := doJSON(router, http.MethodPost, "/api/v1/auth/register",
		`{"email":"jane@example.com","password":"s3cret-pass","first_name":"Jane"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), `"username":"janedoe"`)
}

func TestHandleRegisterConflict(t *testing.T) {
	accounts := &stubAccounts{
		register: func(context.Context, service.RegistrationInput) (*model.Profile, error) {
			return nil, errs.ErrAlreadyExists
		},
	}
	router, _ := newTestServer(t, accounts)

	w := doJSON(router, http.MethodPost, "/api/v1/auth/register",
		`{"email":"jane@example.com","password":"s3cret-pass","first_name":"Jane"}`, "")
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "already_exists")
}

func TestHandleRegisterMissingFields(t *testing.T) {
	router, _ := newTestServer(t, &stubAccounts{})

	w := doJSON(router, http.MethodPost, "/api/v1/auth/register", `{"email":"jane@example.com"}`, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "validation")
}

func TestHandleLogin(t *testing.T) {
	accounts := &stubAccounts{
		authenticate: func(_ context.Context, credential, password string) (model.TokenPair, error) {
			require.Equal(t, "janedoe", credential)
			require.Equal(t, "s3cret-pass", password)
			return model.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
		},
	}
	router, _ := newTestServer(t, accounts)

	w := doJSON(router, http.MethodPost, "/api/v1/auth/login",
		`{"credential":"janedoe","password":"s3cret-pass"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"access_token":"access"`)
}

func TestHandleLoginErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"wrong password", errs.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{"locked", errs.ErrAccountLocked, http.StatusUnauthorized, "account_locked"},
		{"unconfirmed", errs.ErrEmailNotConfirmed, http.StatusUnauthorized, "email_not_confirmed"},
		{"infrastructure fault", errors.New("pg down"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := &stubAccounts{
				authenticate: func(context.Context, string, string) (model.TokenPair, error) {
					return model.TokenPair{}, tt.err
				},
			}
			router, _ := newTestServer(t, accounts)

			w := doJSON(router, http.MethodPost, "/api/v1/auth/login",
				`{"credential":"janedoe","password":"wrong"}`, "")
			require.Equal(t, tt.wantStatus, w.Code)
			require.Contains(t, w.Body.String(), tt.wantCode)
		})
	}
}

func TestHandleRefreshToken(t *testing.T) {
	accounts := &stubAccounts{
		refreshToken: func(_ context.Context, refreshToken string) (model.TokenPair, error) {
			require.Equal(t, "refresh-value", refreshToken)
			return model.TokenPair{AccessToken: "access", RefreshToken: refreshToken}, nil
		},
	}
	router, _ := newTestServer(t, accounts)

	w := doJSON(router, http.MethodPost, "/api/v1/auth/refresh", `{"refresh_token":"refresh-value"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/auth/refresh", `{}`, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSocialLogin(t *testing.T) {
	accounts := &stubAccounts{
		socialLogin: func(_ context.Context, provider, tok string) (model.TokenPair, error) {
			require.Equal(t, "google", provider)
			require.Equal(t, "id-token", tok)
			return model.TokenPair{AccessToken: "access"}, nil
		},
	}
	router, _ := newTestServer(t, accounts)

	w := doJSON(router, http.MethodPost, "/api/v1/auth/social", `{"provider":"google","token":"id-token"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleConfirmEmailBadID(t *testing.T) {
	router, _ := newTestServer(t, &stubAccounts{})

	w := doJSON(router, http.MethodPost, "/api/v1/auth/confirm-email",
		`{"id":"not-a-uuid","token":"whatever"}`, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBearerAuth(t *testing.T) {
	id, err := uuid.NewV4()
	require.NoError(t, err)
	accounts := &stubAccounts{
		getProfile: func(_ context.Context, got uuid.UUID) (*model.Profile, error) {
			require.Equal(t, id, got)
			return model.NewProfile(id, "janedoe", "jane@example.com", "Jane", "Doe")
		},
	}
	router, issuer := newTestServer(t, accounts)

	// no token
	w := doJSON(router, http.MethodGet, "/api/v1/account/profile", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// garbage token
	w = doJSON(router, http.MethodGet, "/api/v1/account/profile", "", "garbage")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// valid token reaches the handler with the right identity
	access, _, err := issuer.CreateAccessToken(id, "janedoe", "jane@example.com")
	require.NoError(t, err)
	w = doJSON(router, http.MethodGet, "/api/v1/account/profile", "", access)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"username":"janedoe"`)
}

func TestHandleUpdateCredential(t *testing.T) {
	id, err := uuid.NewV4()
	require.NoError(t, err)
	accounts := &stubAccounts{
		updateCredential: func(_ context.Context, got uuid.UUID, upd service.CredentialUpdate) (service.CredentialUpdateResult, error) {
			require.Equal(t, id, got)
			require.Equal(t, "jane.new@example.com", upd.NewEmail)
			return service.CredentialUpdateResult{ConfirmationEmailSent: true}, nil
		},
	}
	router, issuer := newTestServer(t, accounts)
	access, _, err := issuer.CreateAccessToken(id, "janedoe", "jane@example.com")
	require.NoError(t, err)

	w := doJSON(router, http.MethodPut, "/api/v1/account/credentials",
		`{"new_email":"jane.new@example.com"}`, access)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"confirmation_email_sent":true`)
}
