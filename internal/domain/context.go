package domain

import "context"

type principalKey struct{}

// AnonymousSubject is the fixed identity an unauthenticated caller resolves
// to on the access path (e.g. link-token access).
const AnonymousSubject = "anonymous"

// ContextPrincipal carries the authenticated identity through request context.
type ContextPrincipal struct {
	Subject string
	IsAdmin bool
}

// WithPrincipal stores a ContextPrincipal in the context.
func WithPrincipal(ctx context.Context, p ContextPrincipal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the ContextPrincipal from the context.
func PrincipalFromContext(ctx context.Context) (ContextPrincipal, bool) {
	p, ok := ctx.Value(principalKey{}).(ContextPrincipal)
	return p, ok
}

// CallerSubject returns the caller identity for the access path. Missing or
// empty principals resolve to AnonymousSubject.
func CallerSubject(ctx context.Context) string {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.Subject == "" {
		return AnonymousSubject
	}
	return p.Subject
}
