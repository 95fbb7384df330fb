package identity

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/goliatone/go-errors"
)

// VerificationCodeBytes is the entropy carried by a verification code.
// 16 bytes (128 bits) keeps codes unguessable even without rate limiting.
const VerificationCodeBytes = 16

// VerificationCodeLength is the hex-encoded width of a verification code.
const VerificationCodeLength = VerificationCodeBytes * 2

// NewVerificationCode returns a fresh random fixed-length code.
func NewVerificationCode() (string, error) {
	buf := make([]byte, VerificationCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate verification code")
	}
	return hex.EncodeToString(buf), nil
}
