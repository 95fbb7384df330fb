package identity

import (
	"context"
)

var accountCtxKey = &contextKey{"account"}
var claimsCtxKey = &contextKey{"claims"}
var projectRoleCtxKey = &contextKey{"project_role"}

type contextKey struct {
	name string
}

// WithContext sets the Account in the given context
func WithContext(r context.Context, account *Account) context.Context {
	return context.WithValue(r, accountCtxKey, account)
}

// FromContext finds the account from the context.
func FromContext(ctx context.Context) (*Account, bool) {
	raw, ok := ctx.Value(accountCtxKey).(*Account)
	return raw, ok
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(r context.Context, claims AuthClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// WithProjectRoleContext records the role resolved for the request's project
func WithProjectRoleContext(r context.Context, role ProjectRole) context.Context {
	return context.WithValue(r, projectRoleCtxKey, role)
}

// ProjectRoleFromContext finds the resolved project role, if a guard ran.
func ProjectRoleFromContext(ctx context.Context) (ProjectRole, bool) {
	raw, ok := ctx.Value(projectRoleCtxKey).(ProjectRole)
	return raw, ok
}

// Can is a convenience function to check a project capability directly from
// the standard context. It reports false when no guard resolved a role.
func Can(ctx context.Context, allowed func(ProjectRole) bool) bool {
	role, ok := ProjectRoleFromContext(ctx)
	if !ok || allowed == nil {
		return false
	}
	return allowed(role)
}
