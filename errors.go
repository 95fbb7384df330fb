package identity

import (
	stderrors "errors"
	"strings"

	"github.com/goliatone/go-errors"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = stderrors.New("identity not found")

// ErrUnableToFindSession is the error when our request has no credential
var ErrUnableToFindSession = stderrors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode JWT from session credential
var ErrUnableToDecodeSession = stderrors.New("unable to decode session")

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = stderrors.New("unable to map claims")

// ErrUnableToParseData parse error
var ErrUnableToParseData = stderrors.New("unable to parse data")

// ErrNoEmptyString empty input where a value is required
var ErrNoEmptyString = stderrors.New("value must not be an empty string")

// Text codes surfaced alongside rich errors so boundary layers can map
// failures without string matching.
const (
	TextCodeDuplicateEmail      = "DUPLICATE_EMAIL"
	TextCodeUnknownAccount      = "UNKNOWN_ACCOUNT"
	TextCodeInvalidToken        = "INVALID_TOKEN"
	TextCodeAccountNotConfirmed = "ACCOUNT_NOT_CONFIRMED"
	TextCodeAccountConfirmed    = "ACCOUNT_ALREADY_CONFIRMED"
	TextCodeInvalidPassword     = "INVALID_PASSWORD"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeTokenMalformed      = "TOKEN_MALFORMED"
	TextCodeProjectUnauthorized = "PROJECT_UNAUTHORIZED"
	TextCodeImmutableClaims     = "IMMUTABLE_CLAIM_MUTATION"
)

// ErrDuplicateEmail is returned when registration or a profile update targets
// an email another account already owns.
var ErrDuplicateEmail = errors.New("an account with that email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail)

// ErrAccountNotFound covers both unknown emails and stale account identifiers.
var ErrAccountNotFound = errors.New("no account matches that identifier", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound).
	WithTextCode(TextCodeUnknownAccount)

// ErrInvalidToken is returned when no live verification token matches.
var ErrInvalidToken = errors.New("invalid or already used verification token", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidToken)

// ErrAccountNotConfirmed blocks login until the account confirms its email.
var ErrAccountNotConfirmed = errors.New("account has not been confirmed", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeAccountNotConfirmed)

// ErrAlreadyConfirmed rejects confirmation-code requests for confirmed accounts.
var ErrAlreadyConfirmed = errors.New("account is already confirmed", errors.CategoryConflict).
	WithTextCode(TextCodeAccountConfirmed)

// ErrMismatchedHashAndPassword is the password verification failure.
var ErrMismatchedHashAndPassword = errors.New("invalid credentials provided", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidPassword)

// ErrTokenExpired is returned for session credentials or verification tokens
// past their lifetime.
var ErrTokenExpired = errors.New("token has expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed covers bad signatures and undecodable credentials.
var ErrTokenMalformed = errors.New("token is malformed or has an invalid signature", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrProjectUnauthorized rejects accounts outside a project's owner/member sets.
var ErrProjectUnauthorized = errors.New("account is not authorized for this project", errors.CategoryAuthz).
	WithCode(errors.CodeForbidden).
	WithTextCode(TextCodeProjectUnauthorized)

// ErrImmutableClaimMutation flags claims decorators that touch protected claims.
var ErrImmutableClaimMutation = errors.New("claims decorator mutated an immutable claim", errors.CategoryInternal).
	WithTextCode(TextCodeImmutableClaims)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
