package identity

import (
	"context"

	"github.com/taskvine/go-identity/middleware/jwtware"
)

// ValidationListener aliases the jwtware listener so consumers can use identity helpers directly.
type ValidationListener = jwtware.ValidationListener

// ContextEnricherAdapter adapts jwtware.AuthClaims to identity.AuthClaims and
// stores the claims in the standard context for downstream guard usage.
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}

	return WithClaimsContext(c, authClaims)
}

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}

// NewMiddlewareTokenValidator wraps a TokenValidator so the jwtware middleware
// can consume it without an import cycle.
func NewMiddlewareTokenValidator(validator TokenValidator) jwtware.TokenValidator {
	return middlewareValidator{validator: validator}
}

type middlewareValidator struct {
	validator TokenValidator
}

func (m middlewareValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	if m.validator == nil {
		return nil, ErrUnableToDecodeSession
	}

	claims, err := m.validator.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	return claims, nil
}
