package dashauth

import "context"

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type accessTokenContextKey struct{}

// WithClientIP attaches the caller's address. It is recorded on new sessions
// and feeds per-IP login throttling.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the caller's user agent, recorded as the session
// device.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithAccessToken makes token the acting identity for account operations
// instead of the persisted current session.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenContextKey{}, token)
}

func clientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	ua, _ := ctx.Value(userAgentContextKey{}).(string)
	return ua
}

func accessTokenFromContext(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(accessTokenContextKey{}).(string)
	return tok, ok
}
