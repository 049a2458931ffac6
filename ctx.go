package trust

import (
	"context"
)

var identityCtxKey = &contextKey{"identity"}
var orgCtxKey = &contextKey{"organization"}

type contextKey struct {
	name string
}

// WithIdentityContext sets the resolved identity in the given context
func WithIdentityContext(ctx context.Context, identity *IdentityContext) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the resolved identity from the context.
func IdentityFromContext(ctx context.Context) (*IdentityContext, bool) {
	raw, ok := ctx.Value(identityCtxKey).(*IdentityContext)
	return raw, ok
}

// WithOrgContext sets the resolved organization context in the given context
func WithOrgContext(ctx context.Context, org *OrgContext) context.Context {
	return context.WithValue(ctx, orgCtxKey, org)
}

// OrgFromContext finds the resolved organization context from the context.
func OrgFromContext(ctx context.Context) (*OrgContext, bool) {
	raw, ok := ctx.Value(orgCtxKey).(*OrgContext)
	return raw, ok
}
