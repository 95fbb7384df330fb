package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the identity record. Accounts start unconfirmed and become
// confirmed exactly once, via a verification token issued to them.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"password_hash,omitempty"`
	IsConfirmed   bool       `bun:"is_confirmed" json:"is_confirmed,omitempty"`
	ConfirmedAt   *time.Time `bun:"confirmed_at,nullzero" json:"confirmed_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// MarkConfirmed flips the account to confirmed and stamps the transition.
func (a *Account) MarkConfirmed() *Account {
	a.IsConfirmed = true
	now := time.Now()
	a.ConfirmedAt = &now
	return a
}

// NormalizeEmail lowercases and trims an email so lookups and the unique
// constraint are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DefaultVerificationTokenTTL bounds how long a verification token stays
// live. Enforced server-side when the token is presented.
const DefaultVerificationTokenTTL = "10m"

// VerificationToken is a single-use credential bound to exactly one account.
// The unique constraint on account_id upholds the one-outstanding-token
// invariant at the persistence layer; issuance always replaces any prior
// token inside the same transaction.
type VerificationToken struct {
	bun.BaseModel `bun:"table:verification_tokens,alias:vtk"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Code          string     `bun:"code,notnull,unique" json:"code,omitempty"`
	AccountID     uuid.UUID  `bun:"account_id,notnull,unique,type:uuid" json:"account_id,omitempty"`
	Account       *Account   `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Expired reports whether the token is past the given TTL pattern (e.g. "10m").
func (t *VerificationToken) Expired(ttl string) (bool, error) {
	if t.CreatedAt == nil {
		return false, nil
	}
	return IsOutsideThresholdPeriod(*t.CreatedAt, ttl)
}
