package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type UpdateProfileMessage struct {
	AccountID  uuid.UUID `json:"account_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	OnResponse func(account *Account)
}

func (e UpdateProfileMessage) Type() string { return "account.profile_update" }

// UpdateProfileHandler updates display name, email, and phone. Empty fields
// keep their stored value. Email moves are rejected when a different account
// already owns the target address.
type UpdateProfileHandler struct {
	repo RepositoryManager
}

func NewUpdateProfileHandler(repo RepositoryManager) *UpdateProfileHandler {
	return &UpdateProfileHandler{repo: repo}
}

func (h *UpdateProfileHandler) Execute(ctx context.Context, event UpdateProfileMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during profile update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateProfileHandler) execute(ctx context.Context, event UpdateProfileMessage) error {
	var updated *Account

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := h.repo.Accounts().GetByID(ctx, event.AccountID.String())
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrAccountNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
		}

		if event.Email != "" {
			email := NormalizeEmail(event.Email)
			if owner, err := h.repo.Accounts().GetByEmailTx(ctx, tx, email); err == nil {
				if owner.ID != account.ID {
					return ErrDuplicateEmail
				}
			} else if !repository.IsRecordNotFound(err) {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for duplicate email")
			}
			account.Email = email
		}

		if event.Name != "" {
			account.Name = event.Name
		}

		if event.Phone != "" {
			account.Phone = event.Phone
		}

		updated, err = h.repo.Accounts().UpdateTx(ctx, tx, account, repository.UpdateByID(account.ID.String()))
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update account profile")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update profile")
	}

	if event.OnResponse != nil {
		event.OnResponse(updated)
	}

	return nil
}
