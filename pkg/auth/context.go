package auth

import "context"

type contextKey struct{}

// SetClaimsInContext attaches the authenticated claims to the request
// context.
func SetClaimsInContext(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

// GetClaimsFromContext retrieves the authenticated claims, or
// ErrMissingToken when the request never passed authentication.
func GetClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(contextKey{}).(*Claims)
	if !ok || claims == nil {
		return nil, ErrMissingToken
	}
	return claims, nil
}
