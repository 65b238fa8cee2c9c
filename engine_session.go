package dashauth

import (
	"context"
	"errors"

	"github.com/MrEthical07/dashauth/internal/credstore"
	"github.com/MrEthical07/dashauth/internal/flows"
	"github.com/MrEthical07/dashauth/permission"
)

// RevokeSession removes one session of userID. Revoking an unknown session
// id is a no-op. Callers may revoke their own sessions; admins may revoke
// anyone's.
func (e *Engine) RevokeSession(ctx context.Context, userID int64, sessionID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.requireSelfOr(ctx, userID, permission.UsersUpdateAny); err != nil {
		return err
	}

	deps := e.sessionDeps()
	deps.Events.Logout = AuditSessionRevoked
	if err := flows.RunRevokeSession(ctx, userID, sessionID, deps); err != nil {
		return err
	}
	e.metrics.Inc(MetricSessionRevoked)
	return nil
}

// ListSessions returns the sessions of userID, oldest first.
func (e *Engine) ListSessions(ctx context.Context, userID int64) ([]Session, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if _, err := e.requireSelfOr(ctx, userID, permission.UsersList); err != nil {
		return nil, err
	}

	rec, err := e.users.FindByID(ctx, userID)
	if errors.Is(err, credstore.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, e.storeErr(err)
	}
	return toUser(rec).Sessions, nil
}
