package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taskvine/go-identity"
)

func TestValidateResetTokenHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("live token validates without being consumed", func(t *testing.T) {
		repo, _, tokens := newMockRepo()
		handler := identity.NewValidateResetTokenHandler(repo)

		now := time.Now()
		token := &identity.VerificationToken{
			ID:        uuid.New(),
			Code:      "reset1",
			AccountID: uuid.New(),
			CreatedAt: &now,
		}

		tokens.On("GetByCode", mock.Anything, "reset1").
			Return(token, nil).Once()

		err := handler.Execute(ctx, identity.ValidateResetTokenMessage{Code: "reset1"})
		require.NoError(t, err)

		// validation never deletes: a follow-up validation still succeeds
		tokens.On("GetByCode", mock.Anything, "reset1").
			Return(token, nil).Once()
		require.NoError(t, handler.Execute(ctx, identity.ValidateResetTokenMessage{Code: "reset1"}))

		tokens.AssertNotCalled(t, "DeleteByIDTx", mock.Anything, mock.Anything, mock.Anything)
		tokens.AssertExpectations(t)
	})

	t.Run("unknown code is an invalid token", func(t *testing.T) {
		repo, _, tokens := newMockRepo()
		handler := identity.NewValidateResetTokenHandler(repo)

		tokens.On("GetByCode", mock.Anything, "bogus").
			Return(nil, notFoundErr()).Once()

		err := handler.Execute(ctx, identity.ValidateResetTokenMessage{Code: "bogus"})
		require.ErrorIs(t, err, identity.ErrInvalidToken)
	})

	t.Run("stale token is expired", func(t *testing.T) {
		repo, _, tokens := newMockRepo()
		handler := identity.NewValidateResetTokenHandler(repo)

		stale := time.Now().Add(-time.Hour)
		token := &identity.VerificationToken{
			ID:        uuid.New(),
			Code:      "reset1",
			AccountID: uuid.New(),
			CreatedAt: &stale,
		}

		tokens.On("GetByCode", mock.Anything, "reset1").
			Return(token, nil).Once()

		err := handler.Execute(ctx, identity.ValidateResetTokenMessage{Code: "reset1"})
		require.ErrorIs(t, err, identity.ErrTokenExpired)
	})

	t.Run("custom TTL keeps an older token live", func(t *testing.T) {
		repo, _, tokens := newMockRepo()
		handler := identity.NewValidateResetTokenHandler(repo).WithTokenTTL("24h")

		old := time.Now().Add(-time.Hour)
		token := &identity.VerificationToken{
			ID:        uuid.New(),
			Code:      "reset1",
			AccountID: uuid.New(),
			CreatedAt: &old,
		}

		tokens.On("GetByCode", mock.Anything, "reset1").
			Return(token, nil).Once()

		require.NoError(t, handler.Execute(ctx, identity.ValidateResetTokenMessage{Code: "reset1"}))
	})
}
