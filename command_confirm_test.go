package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taskvine/go-identity"
)

func TestConfirmAccountHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("confirms the account and consumes the token", func(t *testing.T) {
		repo, accounts, tokens := newMockRepo()
		sink := new(MockActivitySink)
		handler := identity.NewConfirmAccountHandler(repo).
			WithActivitySink(sink).
			WithLogger(testLogger{})

		accountID := uuid.New()
		now := time.Now()
		token := &identity.VerificationToken{
			ID:        uuid.New(),
			Code:      "abc123",
			AccountID: accountID,
			CreatedAt: &now,
		}

		tokens.On("GetByCodeTx", mock.Anything, mock.Anything, "abc123").
			Return(token, nil).Once()
		accounts.On("ConfirmTx", mock.Anything, mock.Anything, accountID).
			Return(nil).Once()
		tokens.On("DeleteByIDTx", mock.Anything, mock.Anything, token.ID).
			Return(nil).Once()
		sink.On("Record", mock.Anything, mock.AnythingOfType("identity.ActivityEvent")).
			Run(func(args mock.Arguments) {
				event := args.Get(1).(identity.ActivityEvent)
				assert.Equal(t, identity.ActivityEventAccountConfirmed, event.EventType)
				assert.Equal(t, accountID.String(), event.AccountID)
			}).
			Return(nil).Once()

		err := handler.Execute(ctx, identity.ConfirmAccountMessage{Code: "abc123"})
		require.NoError(t, err)

		accounts.AssertExpectations(t)
		tokens.AssertExpectations(t)
		sink.AssertExpectations(t)
	})

	t.Run("unknown code is an invalid token", func(t *testing.T) {
		repo, _, tokens := newMockRepo()
		handler := identity.NewConfirmAccountHandler(repo)

		tokens.On("GetByCodeTx", mock.Anything, mock.Anything, "bogus").
			Return(nil, notFoundErr()).Once()

		err := handler.Execute(ctx, identity.ConfirmAccountMessage{Code: "bogus"})
		require.ErrorIs(t, err, identity.ErrInvalidToken)
	})

	t.Run("stale token is expired, not consumed", func(t *testing.T) {
		repo, _, tokens := newMockRepo()
		handler := identity.NewConfirmAccountHandler(repo)

		stale := time.Now().Add(-time.Hour)
		token := &identity.VerificationToken{
			ID:        uuid.New(),
			Code:      "abc123",
			AccountID: uuid.New(),
			CreatedAt: &stale,
		}

		tokens.On("GetByCodeTx", mock.Anything, mock.Anything, "abc123").
			Return(token, nil).Once()

		err := handler.Execute(ctx, identity.ConfirmAccountMessage{Code: "abc123"})
		require.ErrorIs(t, err, identity.ErrTokenExpired)

		tokens.AssertNotCalled(t, "DeleteByIDTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("custom TTL is honored", func(t *testing.T) {
		repo, accounts, tokens := newMockRepo()
		handler := identity.NewConfirmAccountHandler(repo).WithTokenTTL("24h")

		old := time.Now().Add(-time.Hour)
		token := &identity.VerificationToken{
			ID:        uuid.New(),
			Code:      "abc123",
			AccountID: uuid.New(),
			CreatedAt: &old,
		}

		tokens.On("GetByCodeTx", mock.Anything, mock.Anything, "abc123").
			Return(token, nil).Once()
		accounts.On("ConfirmTx", mock.Anything, mock.Anything, token.AccountID).
			Return(nil).Once()
		tokens.On("DeleteByIDTx", mock.Anything, mock.Anything, token.ID).
			Return(nil).Once()

		err := handler.Execute(ctx, identity.ConfirmAccountMessage{Code: "abc123"})
		require.NoError(t, err)
	})

	t.Run("token without an account", func(t *testing.T) {
		repo, accounts, tokens := newMockRepo()
		handler := identity.NewConfirmAccountHandler(repo)

		now := time.Now()
		token := &identity.VerificationToken{
			ID:        uuid.New(),
			Code:      "abc123",
			AccountID: uuid.New(),
			CreatedAt: &now,
		}

		tokens.On("GetByCodeTx", mock.Anything, mock.Anything, "abc123").
			Return(token, nil).Once()
		accounts.On("ConfirmTx", mock.Anything, mock.Anything, token.AccountID).
			Return(notFoundErr()).Once()

		err := handler.Execute(ctx, identity.ConfirmAccountMessage{Code: "abc123"})
		require.ErrorIs(t, err, identity.ErrAccountNotFound)
	})
}
