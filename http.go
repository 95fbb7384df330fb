package identity

import (
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/taskvine/go-identity/middleware/jwtware"
)

type RouteAuthenticator struct {
	auth             Authenticator
	cfg              Config
	validator        TokenValidator
	cookieDuration   time.Duration
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	if ts, ok := auther.(interface{ TokenService() TokenService }); ok {
		a.validator = ts.TokenService()
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

// WithTokenValidator overrides the validator used by ProtectedRoute, e.g. to
// accept tokens from multiple issuers through a MultiTokenValidator.
func (a *RouteAuthenticator) WithTokenValidator(validator TokenValidator) *RouteAuthenticator {
	if validator != nil {
		a.validator = validator
	}
	return a
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return jwtware.New(jwtware.Config{
			ErrorHandler: errorHandler,
			SigningKey: jwtware.SigningKey{
				Key:    []byte(cfg.GetSigningKey()),
				JWTAlg: cfg.GetSigningMethod(),
			},
			AuthScheme:      cfg.GetAuthScheme(),
			ContextKey:      cfg.GetContextKey(),
			TokenLookup:     cfg.GetTokenLookup(),
			TokenValidator:  NewMiddlewareTokenValidator(a.validator),
			ContextEnricher: ContextEnricherAdapter,
		})(hf)
	}
}

// AccountResolver resolves the validated claims to a full account record and
// stores it in the standard context. A token whose subject no longer maps to
// an account is rejected as unauthorized.
func (a *RouteAuthenticator) AccountResolver() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			claims, ok := ctx.Locals(a.cfg.GetContextKey()).(AuthClaims)
			if !ok {
				return a.AuthErrorHandler(ctx, ErrUnableToFindSession)
			}

			session, err := sessionFromAuthClaims(claims)
			if err != nil {
				return a.AuthErrorHandler(ctx, err)
			}

			account, err := a.auth.AccountFromSession(ctx.Context(), session)
			if err != nil {
				a.Logger.Error("AccountResolver stale session subject", "error", err)
				return a.AuthErrorHandler(ctx, errors.Wrap(err, errors.CategoryAuth, "Session account no longer exists").
					WithCode(errors.CodeUnauthorized))
			}

			ctx.SetContext(WithContext(ctx.Context(), account))
			return ctx.Next()
		}
	}
}

// ProjectGuard resolves the requester's role for the project named by the
// route parameter and rejects the request when the role does not grant the
// required capability. Runs after AccountResolver; the resolved role is left
// in the standard context for handlers that branch on it.
func (a *RouteAuthenticator) ProjectGuard(authorizer *ProjectAuthorizer, param string, allowed func(ProjectRole) bool) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			account, ok := FromContext(ctx.Context())
			if !ok {
				return a.AuthErrorHandler(ctx, ErrUnableToFindSession)
			}

			projectID, err := uuid.Parse(ctx.Param(param))
			if err != nil {
				return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "Malformed project identifier"))
			}

			role, err := authorizer.Authorize(ctx.Context(), account.ID, projectID, allowed)
			if err != nil {
				return a.ErrorHandler(ctx, err)
			}

			ctx.SetContext(WithProjectRoleContext(ctx.Context(), role))
			return ctx.Next()
		}
	}
}

// Login authenticates the payload and, on success, stores the minted session
// credential in a cookie and returns it for bearer-style clients.
func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) (string, error) {
	token, err := a.auth.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return "", err
	}

	a.setCookieToken(ctx, token, a.cookieDuration)
	return token, nil
}

func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetContextKey())
}

func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	status := richErr.Code
	if status <= 0 {
		status = router.StatusUnauthorized
	}

	return c.JSON(status, map[string]any{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		status := richErr.Code
		if status <= 0 {
			status = router.StatusInternalServerError
		}
		return c.JSON(status, map[string]any{
			"error":     richErr.Message,
			"text_code": richErr.TextCode,
		})
	}
}
