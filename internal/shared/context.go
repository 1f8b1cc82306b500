package shared

import "context"

type sessionContextKey struct{}

type basePathContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// CredentialFromContext returns the bearer credential of the request's session, if any.
func CredentialFromContext(ctx context.Context) (string, bool) {
	return SessionFromContext(ctx).Credential()
}

// ContextWithBasePath records the URL prefix a screen is mounted under
// (for example "/manager/courses").
func ContextWithBasePath(ctx context.Context, base string) context.Context {
	return context.WithValue(ctx, basePathContextKey{}, base)
}

// BasePathFromContext returns the screen prefix stored by ContextWithBasePath.
func BasePathFromContext(ctx context.Context) string {
	base, _ := ctx.Value(basePathContextKey{}).(string)
	return base
}
