package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type ValidateResetTokenMessage struct {
	Code string `json:"code" doc:"Reset code from the password reset email"`
}

func (e ValidateResetTokenMessage) Type() string { return "account.password_reset.validate" }

// ValidateResetTokenHandler checks that a reset token is live before the
// caller prompts for a new password. It never consumes the token.
type ValidateResetTokenHandler struct {
	repo     RepositoryManager
	tokenTTL string
}

func NewValidateResetTokenHandler(repo RepositoryManager) *ValidateResetTokenHandler {
	return &ValidateResetTokenHandler{
		repo:     repo,
		tokenTTL: DefaultVerificationTokenTTL,
	}
}

// WithTokenTTL overrides the verification token lifetime pattern (e.g. "10m").
func (h *ValidateResetTokenHandler) WithTokenTTL(ttl string) *ValidateResetTokenHandler {
	if ttl != "" {
		h.tokenTTL = ttl
	}
	return h
}

func (h *ValidateResetTokenHandler) Execute(ctx context.Context, event ValidateResetTokenMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during reset token validation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ValidateResetTokenHandler) execute(ctx context.Context, event ValidateResetTokenMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	token, err := h.repo.VerificationTokens().GetByCode(ctx, event.Code)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrInvalidToken
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve verification token")
	}

	expired, err := token.Expired(h.tokenTTL)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check token expiration period")
	}
	if expired {
		return ErrTokenExpired
	}

	return nil
}
