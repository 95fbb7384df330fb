package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type ConfirmAccountMessage struct {
	Code string `json:"code" doc:"Verification code from the confirmation email"`
}

func (e ConfirmAccountMessage) Type() string { return "account.confirm" }

// ConfirmAccountHandler consumes a confirmation token: the account flips to
// confirmed and the token is deleted in the same transaction, so a replayed
// code always fails with an invalid token error.
type ConfirmAccountHandler struct {
	repo     RepositoryManager
	tokenTTL string
	activity ActivitySink
	logger   Logger
}

func NewConfirmAccountHandler(repo RepositoryManager) *ConfirmAccountHandler {
	return &ConfirmAccountHandler{
		repo:     repo,
		tokenTTL: DefaultVerificationTokenTTL,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithTokenTTL overrides the verification token lifetime pattern (e.g. "10m").
func (h *ConfirmAccountHandler) WithTokenTTL(ttl string) *ConfirmAccountHandler {
	if ttl != "" {
		h.tokenTTL = ttl
	}
	return h
}

// WithActivitySink sets the sink used to emit confirmation events.
func (h *ConfirmAccountHandler) WithActivitySink(sink ActivitySink) *ConfirmAccountHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *ConfirmAccountHandler) WithLogger(logger Logger) *ConfirmAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ConfirmAccountHandler) Execute(ctx context.Context, event ConfirmAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account confirmation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmAccountHandler) execute(ctx context.Context, event ConfirmAccountMessage) error {
	var accountID string

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := h.repo.VerificationTokens().GetByCodeTx(ctx, tx, event.Code)
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

		if err := h.repo.Accounts().ConfirmTx(ctx, tx, token.AccountID); err != nil {
			if goerrors.IsNotFound(err) {
				return ErrAccountNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm account")
		}

		if err := h.repo.VerificationTokens().DeleteByIDTx(ctx, tx, token.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume verification token")
		}

		accountID = token.AccountID.String()
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm account")
	}

	h.recordActivity(ctx, accountID)

	return nil
}

func (h *ConfirmAccountHandler) recordActivity(ctx context.Context, accountID string) {
	event := ActivityEvent{
		EventType: ActivityEventAccountConfirmed,
		Actor: ActorRef{
			ID:   accountID,
			Type: "account",
		},
		AccountID:  accountID,
		Metadata:   map[string]any{},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during account confirmation: %v", err)
	}
}
