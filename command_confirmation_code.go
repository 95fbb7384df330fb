package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RequestConfirmationCodeMessage struct {
	Email string `json:"email" doc:"Email of the unconfirmed account"`
}

func (e RequestConfirmationCodeMessage) Type() string { return "account.confirmation_code" }

// RequestConfirmationCodeHandler reissues the confirmation token for an
// unconfirmed account: the prior token is invalidated and the replacement is
// created inside one transaction, then mailed out.
type RequestConfirmationCodeHandler struct {
	repo   RepositoryManager
	mailer Mailer
	logger Logger
}

func NewRequestConfirmationCodeHandler(repo RepositoryManager, mailer Mailer) *RequestConfirmationCodeHandler {
	return &RequestConfirmationCodeHandler{
		repo:   repo,
		mailer: normalizeMailer(mailer, nil),
		logger: defLogger{},
	}
}

func (h *RequestConfirmationCodeHandler) WithLogger(logger Logger) *RequestConfirmationCodeHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RequestConfirmationCodeHandler) Execute(ctx context.Context, event RequestConfirmationCodeMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during confirmation code request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestConfirmationCodeHandler) execute(ctx context.Context, event RequestConfirmationCodeMessage) error {
	var account *Account
	var token *VerificationToken

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		account, err = h.repo.Accounts().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrAccountNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
		}

		if account.IsConfirmed {
			return ErrAlreadyConfirmed
		}

		token, err = h.repo.VerificationTokens().ReplaceForAccountTx(ctx, tx, account.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not issue verification token")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reissue confirmation code")
	}

	if err := h.mailer.SendConfirmation(ctx, account.Email, account.Name, token.Code); err != nil {
		h.logger.Warn("failed to send confirmation email", "error", err)
	}

	return nil
}

// Reissue lets the authenticator trigger a fresh confirmation email when an
// unconfirmed account attempts to log in.
func (h *RequestConfirmationCodeHandler) Reissue(ctx context.Context, email string) error {
	return h.Execute(ctx, RequestConfirmationCodeMessage{Email: email})
}
