package identity_test

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/taskvine/go-identity"
	"github.com/uptrace/bun"
)

// MockConfig implements identity.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetSigningMethod() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetContextKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetTokenExpiration() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockConfig) GetTokenLookup() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetAuthScheme() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetIssuer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetAudience() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockConfig) GetVerificationTokenTTL() string {
	args := m.Called()
	return args.String(0)
}

// MockIdentityProvider implements identity.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, email, password string) (identity.Identity, error) {
	args := m.Called(ctx, email, password)
	var ident identity.Identity
	if v := args.Get(0); v != nil {
		ident = v.(identity.Identity)
	}
	return ident, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (identity.Identity, error) {
	args := m.Called(ctx, identifier)
	var ident identity.Identity
	if v := args.Get(0); v != nil {
		ident = v.(identity.Identity)
	}
	return ident, args.Error(1)
}

// MockAuthenticator implements identity.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) SessionFromToken(token string) (identity.Session, error) {
	args := m.Called(token)
	var session identity.Session
	if v := args.Get(0); v != nil {
		session = v.(identity.Session)
	}
	return session, args.Error(1)
}

func (m *MockAuthenticator) AccountFromSession(ctx context.Context, session identity.Session) (*identity.Account, error) {
	args := m.Called(ctx, session)
	var account *identity.Account
	if v := args.Get(0); v != nil {
		account = v.(*identity.Account)
	}
	return account, args.Error(1)
}

// MockLoginPayload implements identity.LoginPayload
type MockLoginPayload struct {
	Identifier string
	Password   string
}

func (m MockLoginPayload) GetIdentifier() string {
	return m.Identifier
}

func (m MockLoginPayload) GetPassword() string {
	return m.Password
}

// MockRepositoryManager implements identity.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

// RunInTx executes the closure against a zero bun.Tx and propagates its
// error; the repo mocks behind it never touch the database.
func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	var tx bun.Tx
	return f(ctx, tx)
}

func (m *MockRepositoryManager) Accounts() identity.Accounts {
	args := m.Called()
	return args.Get(0).(identity.Accounts)
}

func (m *MockRepositoryManager) VerificationTokens() identity.VerificationTokens {
	args := m.Called()
	return args.Get(0).(identity.VerificationTokens)
}

// MockAccounts implements identity.Accounts. The embedded interface covers
// repository methods the tests never exercise; calling one of those is a bug
// in the test and panics.
type MockAccounts struct {
	mock.Mock
	identity.Accounts
}

func (m *MockAccounts) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*identity.Account, error) {
	args := m.Called(ctx, id, criteria)
	var account *identity.Account
	if v := args.Get(0); v != nil {
		account = v.(*identity.Account)
	}
	return account, args.Error(1)
}

func (m *MockAccounts) GetByEmail(ctx context.Context, email string) (*identity.Account, error) {
	args := m.Called(ctx, email)
	var account *identity.Account
	if v := args.Get(0); v != nil {
		account = v.(*identity.Account)
	}
	return account, args.Error(1)
}

func (m *MockAccounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*identity.Account, error) {
	args := m.Called(ctx, tx, email)
	var account *identity.Account
	if v := args.Get(0); v != nil {
		account = v.(*identity.Account)
	}
	return account, args.Error(1)
}

func (m *MockAccounts) CreateTx(ctx context.Context, tx bun.IDB, record *identity.Account, criteria ...repository.InsertCriteria) (*identity.Account, error) {
	args := m.Called(ctx, tx, record, criteria)
	var account *identity.Account
	if v := args.Get(0); v != nil {
		account = v.(*identity.Account)
	}
	return account, args.Error(1)
}

func (m *MockAccounts) UpdateTx(ctx context.Context, tx bun.IDB, record *identity.Account, criteria ...repository.UpdateCriteria) (*identity.Account, error) {
	args := m.Called(ctx, tx, record, criteria)
	var account *identity.Account
	if v := args.Get(0); v != nil {
		account = v.(*identity.Account)
	}
	return account, args.Error(1)
}

func (m *MockAccounts) ConfirmTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockAccounts) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, tx, id, passwordHash)
	return args.Error(0)
}

// MockVerificationTokens implements identity.VerificationTokens
type MockVerificationTokens struct {
	mock.Mock
	identity.VerificationTokens
}

func (m *MockVerificationTokens) GetByCode(ctx context.Context, code string) (*identity.VerificationToken, error) {
	args := m.Called(ctx, code)
	var token *identity.VerificationToken
	if v := args.Get(0); v != nil {
		token = v.(*identity.VerificationToken)
	}
	return token, args.Error(1)
}

func (m *MockVerificationTokens) GetByCodeTx(ctx context.Context, tx bun.IDB, code string) (*identity.VerificationToken, error) {
	args := m.Called(ctx, tx, code)
	var token *identity.VerificationToken
	if v := args.Get(0); v != nil {
		token = v.(*identity.VerificationToken)
	}
	return token, args.Error(1)
}

func (m *MockVerificationTokens) ReplaceForAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (*identity.VerificationToken, error) {
	args := m.Called(ctx, tx, accountID)
	var token *identity.VerificationToken
	if v := args.Get(0); v != nil {
		token = v.(*identity.VerificationToken)
	}
	return token, args.Error(1)
}

func (m *MockVerificationTokens) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockVerificationTokens) DeleteByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) error {
	args := m.Called(ctx, tx, accountID)
	return args.Error(0)
}

// MockMailer implements identity.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendConfirmation(ctx context.Context, email, name, code string) error {
	args := m.Called(ctx, email, name, code)
	return args.Error(0)
}

func (m *MockMailer) SendPasswordReset(ctx context.Context, email, name, code string) error {
	args := m.Called(ctx, email, name, code)
	return args.Error(0)
}

// MockActivitySink implements identity.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event identity.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockConfirmationReissuer implements identity.ConfirmationReissuer
type MockConfirmationReissuer struct {
	mock.Mock
}

func (m *MockConfirmationReissuer) Reissue(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// TestIdentity is a simple implementation of the Identity interface for testing
type TestIdentity struct {
	id        string
	name      string
	email     string
	confirmed bool
}

func (t TestIdentity) ID() string      { return t.id }
func (t TestIdentity) Name() string    { return t.name }
func (t TestIdentity) Email() string   { return t.email }
func (t TestIdentity) Confirmed() bool { return t.confirmed }

// MockContext implements router.Context. The embedded interface covers the
// surface the handlers never touch; Context and SetContext are concrete so
// middleware chains can thread the request context without choreography.
// routerContext aliases router.Context so it can be embedded without the
// implicit field name colliding with the concrete Context method below.
type routerContext = router.Context

type MockContext struct {
	mock.Mock
	routerContext
	NextCalled bool

	ctx context.Context
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	if m.ctx == nil {
		return context.Background()
	}
	return m.ctx
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.ctx = ctx
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

// notFoundErr mimics the repository's record-not-found failure.
func notFoundErr() error {
	return repository.NewRecordNotFound()
}

// newMockRepo wires a repository manager whose collections are mocks and
// whose transactions run the closure directly.
func newMockRepo() (*MockRepositoryManager, *MockAccounts, *MockVerificationTokens) {
	accounts := new(MockAccounts)
	tokens := new(MockVerificationTokens)

	repo := new(MockRepositoryManager)
	repo.On("Accounts").Return(identity.Accounts(accounts))
	repo.On("VerificationTokens").Return(identity.VerificationTokens(tokens))

	return repo, accounts, tokens
}

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}
