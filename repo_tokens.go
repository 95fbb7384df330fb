package identity

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type VerificationTokens interface {
	repository.Repository[*VerificationToken]

	GetByCode(ctx context.Context, code string) (*VerificationToken, error)
	GetByCodeTx(ctx context.Context, tx bun.IDB, code string) (*VerificationToken, error)

	GetByAccount(ctx context.Context, accountID uuid.UUID) (*VerificationToken, error)
	GetByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (*VerificationToken, error)

	// ReplaceForAccountTx deletes any outstanding token for the account and
	// inserts a fresh one as a single sequence. Callers must run it inside a
	// transaction; together with the unique constraint on account_id this is
	// the critical section that keeps at most one token live per account.
	ReplaceForAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (*VerificationToken, error)

	DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	DeleteByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) error
}

type verificationTokens struct {
	repository.Repository[*VerificationToken]
	db *bun.DB
}

var (
	_ VerificationTokens                        = (*verificationTokens)(nil)
	_ repository.Repository[*VerificationToken] = (*verificationTokens)(nil)
)

func NewVerificationTokensRepository(db *bun.DB) VerificationTokens {
	repo := repository.NewRepository[*VerificationToken](db, repository.ModelHandlers[*VerificationToken]{
		NewRecord: func() *VerificationToken { return &VerificationToken{} },
		GetID: func(t *VerificationToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *VerificationToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "code"
		},
	})

	return &verificationTokens{
		Repository: repo,
		db:         db,
	}
}

func (r *verificationTokens) GetByCode(ctx context.Context, code string) (*VerificationToken, error) {
	return r.GetByCodeTx(ctx, r.db, code)
}

func (r *verificationTokens) GetByCodeTx(ctx context.Context, tx bun.IDB, code string) (*VerificationToken, error) {
	record := &VerificationToken{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.code = ?", code).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

func (r *verificationTokens) GetByAccount(ctx context.Context, accountID uuid.UUID) (*VerificationToken, error) {
	return r.GetByAccountTx(ctx, r.db, accountID)
}

func (r *verificationTokens) GetByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (*VerificationToken, error) {
	record := &VerificationToken{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.account_id = ?", accountID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"account_id": accountID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (r *verificationTokens) ReplaceForAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (*VerificationToken, error) {
	if err := r.DeleteByAccountTx(ctx, tx, accountID); err != nil {
		return nil, err
	}

	code, err := NewVerificationCode()
	if err != nil {
		return nil, err
	}

	record := &VerificationToken{
		ID:        uuid.New(),
		Code:      code,
		AccountID: accountID,
	}

	return r.Repository.CreateTx(ctx, tx, record)
}

func (r *verificationTokens) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*VerificationToken)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (r *verificationTokens) DeleteByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*VerificationToken)(nil)).
		Where("account_id = ?", accountID).
		Exec(ctx)
	return err
}
