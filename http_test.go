package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taskvine/go-identity"
)

func newHTTPConfig() *MockConfig {
	cfg := new(MockConfig)
	cfg.On("GetTokenExpiration").Return(24)
	cfg.On("GetContextKey").Return("account")
	return cfg
}

func passthrough(c router.Context) error {
	return c.Next()
}

func TestNewHTTPAuthenticator(t *testing.T) {
	httpAuth, err := identity.NewHTTPAuthenticator(new(MockAuthenticator), newHTTPConfig())
	require.NoError(t, err)
	require.NotNil(t, httpAuth)
	assert.Equal(t, 24*time.Hour, httpAuth.GetCookieDuration())
}

func TestRouteAuthenticatorLogin(t *testing.T) {
	t.Run("sets the session cookie and returns the token", func(t *testing.T) {
		mockAuth := new(MockAuthenticator)
		mockCtx := new(MockContext)

		mockAuth.On("Login", mock.Anything, "user@example.com", "secret#123").
			Return("valid.jwt.token", nil).Once()
		mockCtx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
			return c.Name == "account" && c.Value == "valid.jwt.token" &&
				c.HTTPOnly && c.Expires.After(time.Now())
		})).Return().Once()

		httpAuth, err := identity.NewHTTPAuthenticator(mockAuth, newHTTPConfig())
		require.NoError(t, err)
		httpAuth.Logger = testLogger{}

		token, err := httpAuth.Login(mockCtx, MockLoginPayload{
			Identifier: "user@example.com",
			Password:   "secret#123",
		})
		require.NoError(t, err)
		assert.Equal(t, "valid.jwt.token", token)

		mockAuth.AssertExpectations(t)
		mockCtx.AssertExpectations(t)
	})

	t.Run("does not touch the cookie on failure", func(t *testing.T) {
		mockAuth := new(MockAuthenticator)
		mockCtx := new(MockContext)

		mockAuth.On("Login", mock.Anything, "user@example.com", "wrong").
			Return("", identity.ErrMismatchedHashAndPassword).Once()

		httpAuth, err := identity.NewHTTPAuthenticator(mockAuth, newHTTPConfig())
		require.NoError(t, err)
		httpAuth.Logger = testLogger{}

		token, err := httpAuth.Login(mockCtx, MockLoginPayload{
			Identifier: "user@example.com",
			Password:   "wrong",
		})
		require.ErrorIs(t, err, identity.ErrMismatchedHashAndPassword)
		assert.Empty(t, token)

		mockCtx.AssertNotCalled(t, "Cookie", mock.Anything)
	})
}

func TestRouteAuthenticatorLogout(t *testing.T) {
	mockCtx := new(MockContext)
	mockCtx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == "account" && c.Value == "" && c.Expires.Before(time.Now())
	})).Return().Once()

	httpAuth, err := identity.NewHTTPAuthenticator(new(MockAuthenticator), newHTTPConfig())
	require.NoError(t, err)

	httpAuth.Logout(mockCtx)

	mockCtx.AssertExpectations(t)
}

func TestAccountResolver(t *testing.T) {
	accountID := uuid.New()
	claims := &identity.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: accountID.String()},
		UID:              accountID.String(),
	}

	t.Run("stores the resolved account in the request context", func(t *testing.T) {
		mockAuth := new(MockAuthenticator)
		mockCtx := new(MockContext)

		account := &identity.Account{ID: accountID, Email: "resolver@example.com", IsConfirmed: true}

		mockCtx.On("Locals", "account").Return(identity.AuthClaims(claims)).Once()
		mockAuth.On("AccountFromSession", mock.Anything, mock.MatchedBy(func(s identity.Session) bool {
			return s.GetAccountID() == accountID.String()
		})).Return(account, nil).Once()

		httpAuth, err := identity.NewHTTPAuthenticator(mockAuth, newHTTPConfig())
		require.NoError(t, err)
		httpAuth.Logger = testLogger{}

		handler := httpAuth.AccountResolver()(passthrough)
		require.NoError(t, handler(mockCtx))
		assert.True(t, mockCtx.NextCalled)

		resolved, ok := identity.FromContext(mockCtx.Context())
		require.True(t, ok)
		assert.Equal(t, account, resolved)

		mockAuth.AssertExpectations(t)
	})

	t.Run("missing claims trip the auth error handler", func(t *testing.T) {
		mockCtx := new(MockContext)
		mockCtx.On("Locals", "account").Return(nil).Once()

		httpAuth, err := identity.NewHTTPAuthenticator(new(MockAuthenticator), newHTTPConfig())
		require.NoError(t, err)

		var captured error
		httpAuth.AuthErrorHandler = func(c router.Context, err error) error {
			captured = err
			return nil
		}

		handler := httpAuth.AccountResolver()(passthrough)
		require.NoError(t, handler(mockCtx))
		require.ErrorIs(t, captured, identity.ErrUnableToFindSession)
		assert.False(t, mockCtx.NextCalled)
	})

	t.Run("stale subject is rejected as unauthorized", func(t *testing.T) {
		mockAuth := new(MockAuthenticator)
		mockCtx := new(MockContext)

		mockCtx.On("Locals", "account").Return(identity.AuthClaims(claims)).Once()
		mockAuth.On("AccountFromSession", mock.Anything, mock.Anything).
			Return(nil, identity.ErrAccountNotFound).Once()

		httpAuth, err := identity.NewHTTPAuthenticator(mockAuth, newHTTPConfig())
		require.NoError(t, err)
		httpAuth.Logger = testLogger{}

		var captured error
		httpAuth.AuthErrorHandler = func(c router.Context, err error) error {
			captured = err
			return nil
		}

		handler := httpAuth.AccountResolver()(passthrough)
		require.NoError(t, handler(mockCtx))
		require.Error(t, captured)
		assert.False(t, mockCtx.NextCalled)
	})
}

func TestProjectGuard(t *testing.T) {
	owner := uuid.New()
	member := uuid.New()
	projectID := uuid.New()

	directory := identity.ProjectDirectoryFunc(func(ctx context.Context, id uuid.UUID) (*identity.Project, error) {
		return &identity.Project{
			ID:        projectID,
			OwnerID:   owner,
			MemberIDs: []uuid.UUID{member},
		}, nil
	})
	authorizer := identity.NewProjectAuthorizer(directory).WithLogger(testLogger{})

	newGuardCtx := func(accountID uuid.UUID) *MockContext {
		mockCtx := new(MockContext)
		mockCtx.SetContext(identity.WithContext(context.Background(), &identity.Account{ID: accountID}))
		return mockCtx
	}

	t.Run("member passes a task status update", func(t *testing.T) {
		httpAuth, err := identity.NewHTTPAuthenticator(new(MockAuthenticator), newHTTPConfig())
		require.NoError(t, err)

		mockCtx := newGuardCtx(member)
		mockCtx.On("Param", "projectID").Return(projectID.String()).Once()

		handler := httpAuth.ProjectGuard(authorizer, "projectID", identity.ProjectRole.CanUpdateTaskStatus)(passthrough)
		require.NoError(t, handler(mockCtx))
		assert.True(t, mockCtx.NextCalled)

		role, ok := identity.ProjectRoleFromContext(mockCtx.Context())
		require.True(t, ok)
		assert.Equal(t, identity.RoleMember, role)
	})

	t.Run("member is denied task management", func(t *testing.T) {
		httpAuth, err := identity.NewHTTPAuthenticator(new(MockAuthenticator), newHTTPConfig())
		require.NoError(t, err)

		var captured error
		httpAuth.ErrorHandler = func(c router.Context, err error) error {
			captured = err
			return nil
		}

		mockCtx := newGuardCtx(member)
		mockCtx.On("Param", "projectID").Return(projectID.String()).Once()

		handler := httpAuth.ProjectGuard(authorizer, "projectID", identity.ProjectRole.CanManageTasks)(passthrough)
		require.NoError(t, handler(mockCtx))
		require.ErrorIs(t, captured, identity.ErrProjectUnauthorized)
		assert.False(t, mockCtx.NextCalled)
	})

	t.Run("malformed project id is bad input, not unauthorized", func(t *testing.T) {
		httpAuth, err := identity.NewHTTPAuthenticator(new(MockAuthenticator), newHTTPConfig())
		require.NoError(t, err)

		var captured error
		httpAuth.ErrorHandler = func(c router.Context, err error) error {
			captured = err
			return nil
		}

		mockCtx := newGuardCtx(owner)
		mockCtx.On("Param", "projectID").Return("not-a-uuid").Once()

		handler := httpAuth.ProjectGuard(authorizer, "projectID", identity.ProjectRole.CanView)(passthrough)
		require.NoError(t, handler(mockCtx))
		require.Error(t, captured)
		assert.NotErrorIs(t, captured, identity.ErrProjectUnauthorized)
	})

	t.Run("missing account in context trips the auth error handler", func(t *testing.T) {
		httpAuth, err := identity.NewHTTPAuthenticator(new(MockAuthenticator), newHTTPConfig())
		require.NoError(t, err)

		var captured error
		httpAuth.AuthErrorHandler = func(c router.Context, err error) error {
			captured = err
			return nil
		}

		mockCtx := new(MockContext)
		handler := httpAuth.ProjectGuard(authorizer, "projectID", identity.ProjectRole.CanView)(passthrough)
		require.NoError(t, handler(mockCtx))
		require.ErrorIs(t, captured, identity.ErrUnableToFindSession)
	})
}

func TestMakeClientRouteAuthErrorHandler(t *testing.T) {
	t.Run("optional routes proceed on auth failure", func(t *testing.T) {
		httpAuth, err := identity.NewHTTPAuthenticator(new(MockAuthenticator), newHTTPConfig())
		require.NoError(t, err)
		httpAuth.Logger = testLogger{}

		mockCtx := new(MockContext)
		handler := httpAuth.MakeClientRouteAuthErrorHandler(true)

		require.NoError(t, handler(mockCtx, identity.ErrTokenMalformed))
		assert.True(t, mockCtx.NextCalled)
	})

	t.Run("required routes surface the failure", func(t *testing.T) {
		httpAuth, err := identity.NewHTTPAuthenticator(new(MockAuthenticator), newHTTPConfig())
		require.NoError(t, err)
		httpAuth.Logger = testLogger{}

		var captured error
		httpAuth.ErrorHandler = func(c router.Context, err error) error {
			captured = err
			return nil
		}

		mockCtx := new(MockContext)
		handler := httpAuth.MakeClientRouteAuthErrorHandler(false)

		require.NoError(t, handler(mockCtx, identity.ErrTokenExpired))
		require.ErrorIs(t, captured, identity.ErrTokenExpired)
		assert.False(t, mockCtx.NextCalled)
	})
}
