package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/dashauth"
	"github.com/MrEthical07/dashauth/token"
)

// Identity is the authenticated caller of a guarded request.
type Identity struct {
	User   *dashauth.User
	Claims *token.Claims
	Token  string
}

type identityContextKey struct{}

// IdentityFromContext returns the identity stored by Guard.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*Identity)
	return id, ok
}

// Guard rejects requests without a valid "Authorization: Bearer" token. The
// token is also attached with dashauth.WithAccessToken so engine account
// operations act as the caller.
func Guard(engine *dashauth.Engine, opts ...Option) func(http.Handler) http.Handler {
	o := newOptions(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				o.onError(w, r, dashauth.ErrUnauthorized)
				return
			}
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				o.onError(w, r, dashauth.ErrUnauthorized)
				return
			}
			user, claims, err := engine.Authenticate(r.Context(), raw)
			switch {
			case errors.Is(err, dashauth.ErrAccountDisabled), errors.Is(err, dashauth.ErrStoreUnavailable):
				o.onError(w, r, err)
				return
			case err != nil:
				o.onError(w, r, dashauth.ErrUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), identityContextKey{}, &Identity{User: user, Claims: claims, Token: raw})
			ctx = dashauth.WithAccessToken(ctx, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	raw := strings.TrimSpace(value[len(bearer):])
	if raw == "" {
		return "", false
	}
	return raw, true
}
