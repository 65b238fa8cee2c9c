package middleware

import (
	"net"
	"net/http"
	"slices"

	"github.com/MrEthical07/dashauth"
)

// RequireRole admits callers whose role is one of roles. It must run after
// Guard.
func RequireRole(roles []dashauth.Role, opts ...Option) func(http.Handler) http.Handler {
	o := newOptions(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				o.onError(w, r, dashauth.ErrUnauthorized)
				return
			}
			if !slices.Contains(roles, id.User.Role) {
				o.onError(w, r, dashauth.ErrPermissionDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission admits callers whose role grants perm. It must run
// after Guard.
func RequirePermission(engine *dashauth.Engine, perm string, opts ...Option) func(http.Handler) http.Handler {
	o := newOptions(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				o.onError(w, r, dashauth.ErrUnauthorized)
				return
			}
			if !engine.Can(id.User.Role, perm) {
				o.onError(w, r, dashauth.ErrPermissionDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientInfo attaches the remote address and user agent of the request with
// dashauth.WithClientIP and dashauth.WithUserAgent.
func ClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		ctx := dashauth.WithClientIP(r.Context(), ip)
		if ua := r.UserAgent(); ua != "" {
			ctx = dashauth.WithUserAgent(ctx, ua)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
