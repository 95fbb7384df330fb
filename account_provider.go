package identity

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// AccountProvider resolves identities for authentication.
type AccountProvider struct {
	repo      RepositoryManager
	passwords PasswordAuthenticator
	logger    Logger
}

// NewAccountProvider will create a new AccountProvider
func NewAccountProvider(repo RepositoryManager) *AccountProvider {
	return &AccountProvider{
		repo:      repo,
		passwords: BcryptAuthenticator{},
		logger:    defLogger{},
	}
}

func (p *AccountProvider) WithLogger(l Logger) *AccountProvider {
	if l != nil {
		p.logger = l
	}
	return p
}

// WithPasswordAuthenticator swaps the credential verification scheme.
func (p *AccountProvider) WithPasswordAuthenticator(pa PasswordAuthenticator) *AccountProvider {
	if pa != nil {
		p.passwords = pa
	}
	return p
}

// VerifyIdentity will find the account, compare the password, and return the
// identity. Unconfirmed accounts fail before the password is checked so the
// caller can trigger a confirmation reissue.
func (p *AccountProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	account, err := p.repo.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during verification")
	}

	if !account.IsConfirmed {
		return accountIdentity{
			id:    account.ID.String(),
			email: account.Email,
			name:  account.Name,
		}, ErrAccountNotConfirmed
	}

	if err := p.passwords.ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		return nil, ErrMismatchedHashAndPassword
	}

	return identityFromAccount(account), nil
}

// FindIdentityByIdentifier resolves an identity by account id or email.
func (p *AccountProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	var account *Account
	var err error

	if _, uuidErr := uuid.Parse(identifier); uuidErr == nil {
		account, err = p.repo.Accounts().GetByID(ctx, identifier)
	} else {
		account, err = p.repo.Accounts().GetByEmail(ctx, identifier)
	}

	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return identityFromAccount(account), nil
}

// CheckPassword verifies a password for an existing account without mutating
// anything. A mismatch is reported as a typed condition, never a fault.
func (p *AccountProvider) CheckPassword(ctx context.Context, accountID uuid.UUID, password string) error {
	account, err := p.repo.Accounts().GetByID(ctx, accountID.String())
	if err != nil {
		if errors.IsNotFound(err) {
			return ErrAccountNotFound
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account")
	}

	return p.passwords.ComparePasswordAndHash(password, account.PasswordHash)
}

type accountIdentity struct {
	id        string
	name      string
	email     string
	confirmed bool
}

func (a accountIdentity) ID() string {
	return a.id
}

func (a accountIdentity) Name() string {
	return a.name
}

func (a accountIdentity) Email() string {
	return a.email
}

func (a accountIdentity) Confirmed() bool {
	return a.confirmed
}

var _ Identity = accountIdentity{}
var _ IdentityProvider = (*AccountProvider)(nil)

func identityFromAccount(account *Account) Identity {
	return accountIdentity{
		id:        account.ID.String(),
		email:     account.Email,
		name:      account.Name,
		confirmed: account.IsConfirmed,
	}
}
