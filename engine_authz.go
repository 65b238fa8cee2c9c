package dashauth

import (
	"context"
	"errors"

	"github.com/MrEthical07/dashauth/internal/credstore"
)

// actor resolves the caller of an account operation: the token passed with
// WithAccessToken, else the current session.
func (e *Engine) actor(ctx context.Context) (credstore.Record, error) {
	raw, ok := accessTokenFromContext(ctx)
	if !ok {
		cur, err := e.current(ctx)
		if err != nil {
			return credstore.Record{}, e.storeErr(err)
		}
		raw = cur.Token
	}
	if raw == "" {
		return credstore.Record{}, ErrUnauthorized
	}

	rec, _, err := e.authenticate(ctx, raw)
	switch {
	case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrAccountDisabled):
		return credstore.Record{}, ErrUnauthorized
	case err != nil:
		return credstore.Record{}, err
	}
	return rec, nil
}

// require resolves the actor and checks that its role grants perm.
func (e *Engine) require(ctx context.Context, perm string) (credstore.Record, error) {
	act, err := e.actor(ctx)
	if err != nil {
		return act, err
	}
	if !e.roles.Allowed(act.Role, perm) {
		e.metrics.Inc(MetricPermissionDenied)
		return act, ErrPermissionDenied
	}
	return act, nil
}

// requireSelfOr admits the user itself, or any actor holding perm.
func (e *Engine) requireSelfOr(ctx context.Context, userID int64, perm string) (credstore.Record, error) {
	act, err := e.actor(ctx)
	if err != nil {
		return act, err
	}
	if act.ID != userID && !e.roles.Allowed(act.Role, perm) {
		e.metrics.Inc(MetricPermissionDenied)
		return act, ErrPermissionDenied
	}
	return act, nil
}

// Can reports whether role holds the named permission.
func (e *Engine) Can(role Role, perm string) bool {
	return e != nil && e.roles.Allowed(string(role), perm)
}

// Permissions lists the permissions granted to role.
func (e *Engine) Permissions(role Role) []string {
	if e == nil {
		return nil
	}
	mask, ok := e.roles.Mask(string(role))
	if !ok {
		return nil
	}
	return e.roles.Registry().Names(mask)
}
