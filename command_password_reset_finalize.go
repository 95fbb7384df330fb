package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type FinalizePasswordResetMessage struct {
	Code     string `json:"code" doc:"Reset code from the password reset email"`
	Password string `json:"password" example:"some_secret_word" doc:"New password"`
}

func (e FinalizePasswordResetMessage) Type() string { return "account.password_reset.finalize" }

// FinalizePasswordResetHandler consumes a reset token: the new password hash
// is stored and the token deleted in the same transaction.
type FinalizePasswordResetHandler struct {
	repo     RepositoryManager
	tokenTTL string
	activity ActivitySink
	logger   Logger
}

// NewFinalizePasswordResetHandler creates a handler with sane defaults.
func NewFinalizePasswordResetHandler(repo RepositoryManager) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		repo:     repo,
		tokenTTL: DefaultVerificationTokenTTL,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithTokenTTL overrides the verification token lifetime pattern (e.g. "10m").
func (h *FinalizePasswordResetHandler) WithTokenTTL(ttl string) *FinalizePasswordResetHandler {
	if ttl != "" {
		h.tokenTTL = ttl
	}
	return h
}

// WithActivitySink sets the sink used to emit password reset events.
func (h *FinalizePasswordResetHandler) WithActivitySink(sink ActivitySink) *FinalizePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	var accountID string

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := h.repo.VerificationTokens().GetByCodeTx(ctx, tx, event.Code)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrInvalidToken
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve password reset token")
		}

		expired, err := token.Expired(h.tokenTTL)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check token expiration period")
		}
		if expired {
			return ErrTokenExpired
		}

		passwordHash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		if err := h.repo.Accounts().ResetPasswordTx(ctx, tx, token.AccountID, passwordHash); err != nil {
			if goerrors.IsNotFound(err) {
				return ErrAccountNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update account password in database")
		}

		if err := h.repo.VerificationTokens().DeleteByIDTx(ctx, tx, token.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume password reset token")
		}

		accountID = token.AccountID.String()
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	h.recordActivity(ctx, accountID)

	return nil
}

func (h *FinalizePasswordResetHandler) recordActivity(ctx context.Context, accountID string) {
	event := ActivityEvent{
		EventType: ActivityEventPasswordResetSuccess,
		Actor: ActorRef{
			ID:   accountID,
			Type: "account",
		},
		AccountID:  accountID,
		Metadata:   map[string]any{},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password reset: %v", err)
	}
}
