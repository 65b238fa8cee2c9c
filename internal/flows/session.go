package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/dashauth/internal/credstore"
)

// CurrentSession is the persisted pointer to the active login.
type CurrentSession struct {
	Token     string
	SessionID string
}

// SessionDeps wires logout and current-user resolution.
type SessionDeps struct {
	Common

	Users *credstore.Store

	// DecodeToken returns the user and session a token was issued for.
	// ok is false for any token that is not valid now.
	DecodeToken  func(token string) (userID int64, sessionID string, ok bool)
	Current      func(ctx context.Context) (CurrentSession, error)
	ClearCurrent func(ctx context.Context) error
}

var errNoChange = errors.New("no change")

// RunLogout ends the current session: the session is removed from its user
// when the token still decodes, and the pointers are cleared either way.
// Without a current session it does nothing.
func RunLogout(ctx context.Context, deps SessionDeps) error {
	deps.normalize()
	if deps.Users == nil || deps.Current == nil || deps.ClearCurrent == nil || deps.DecodeToken == nil {
		return deps.Errors.EngineNotReady
	}

	cur, err := deps.Current(ctx)
	if err != nil {
		return deps.storeErr(err)
	}
	if cur.Token == "" && cur.SessionID == "" {
		return nil
	}

	if uid, tokenSID, ok := deps.DecodeToken(cur.Token); ok {
		sid := cur.SessionID
		if sid == "" {
			sid = tokenSID
		}
		err := removeSession(ctx, deps.Users, uid, sid)
		if err != nil && !errors.Is(err, credstore.ErrNotFound) {
			return deps.storeErr(err)
		}
		deps.MetricInc(deps.Metrics.Logout)
		deps.EmitAudit(ctx, deps.Events.Logout, true, uid, sid, nil, nil)
	}

	if err := deps.ClearCurrent(ctx); err != nil {
		return deps.storeErr(err)
	}
	return nil
}

// RunResolveCurrent returns the user behind the current token. An invalid or
// expired token, a vanished user, or a session no longer on the user all
// clear the pointers and yield (nil, nil).
func RunResolveCurrent(ctx context.Context, deps SessionDeps) (*credstore.Record, error) {
	deps.normalize()
	if deps.Users == nil || deps.Current == nil || deps.DecodeToken == nil || deps.ClearCurrent == nil {
		return nil, deps.Errors.EngineNotReady
	}

	cur, err := deps.Current(ctx)
	if err != nil {
		return nil, deps.storeErr(err)
	}
	if cur.Token == "" {
		return nil, nil
	}

	uid, sid, ok := deps.DecodeToken(cur.Token)
	if !ok {
		if err := RunLogout(ctx, deps); err != nil {
			return nil, err
		}
		return nil, nil
	}

	rec, err := deps.Users.FindByID(ctx, uid)
	switch {
	case errors.Is(err, credstore.ErrNotFound):
		return nil, clearStale(ctx, deps)
	case err != nil:
		return nil, deps.storeErr(err)
	}
	if _, ok := rec.Session(sid); !ok {
		return nil, clearStale(ctx, deps)
	}
	return &rec, nil
}

// clearStale drops pointers to a session that no longer exists.
func clearStale(ctx context.Context, deps SessionDeps) error {
	if err := deps.ClearCurrent(ctx); err != nil {
		return deps.storeErr(err)
	}
	return nil
}

// RunRevokeSession removes one session of a user. An unknown session id is
// not an error.
func RunRevokeSession(ctx context.Context, userID int64, sessionID string, deps SessionDeps) error {
	deps.normalize()
	if deps.Users == nil {
		return deps.Errors.EngineNotReady
	}

	err := removeSession(ctx, deps.Users, userID, sessionID)
	if errors.Is(err, credstore.ErrNotFound) {
		return deps.Errors.UserNotFound
	}
	if err != nil {
		return deps.storeErr(err)
	}
	deps.EmitAudit(ctx, deps.Events.Logout, true, userID, sessionID, nil, func() map[string]string {
		return map[string]string{"reason": "revoked"}
	})
	return nil
}

// removeSession deletes sid from the user's list. A missing session causes no
// write; a missing user is reported as credstore.ErrNotFound.
func removeSession(ctx context.Context, users *credstore.Store, uid int64, sid string) error {
	_, err := users.Mutate(ctx, uid, func(r *credstore.Record, _ []credstore.Record) error {
		if !r.RemoveSession(sid) {
			return errNoChange
		}
		return nil
	})
	if errors.Is(err, errNoChange) {
		return nil
	}
	return err
}
