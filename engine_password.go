package dashauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/dashauth/internal/credstore"
	"github.com/MrEthical07/dashauth/password"
	"github.com/MrEthical07/dashauth/permission"
)

// ChangePassword replaces the password of userID after checking the current
// one. Existing sessions stay open.
func (e *Engine) ChangePassword(ctx context.Context, userID int64, oldSecret, newSecret string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	act, err := e.requireSelfOr(ctx, userID, permission.UsersUpdateAny)
	if err != nil {
		return err
	}

	rec, err := e.users.FindByID(ctx, userID)
	if errors.Is(err, credstore.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return e.storeErr(err)
	}

	ok, err := e.hasher.Verify(oldSecret, rec.PasswordHash)
	if err != nil {
		e.logger.Warn("dashauth: stored password hash unreadable", "user_id", rec.ID, "error", err)
	}
	if !ok {
		e.metrics.Inc(MetricPasswordChangeInvalidOld)
		e.emitAudit(ctx, AuditPasswordChange, false, userID, "", ErrIncorrectPassword, nil)
		return ErrIncorrectPassword
	}
	if err := e.checkPolicy(newSecret); err != nil {
		return err
	}

	hash, err := e.hasher.Hash(newSecret)
	if err != nil {
		return err
	}
	_, err = e.users.Mutate(ctx, userID, func(r *credstore.Record, _ []credstore.Record) error {
		r.PasswordHash = hash
		return nil
	})
	if errors.Is(err, credstore.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return e.storeErr(err)
	}

	e.metrics.Inc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, AuditPasswordChange, true, userID, "", nil, actorMeta(act.ID))
	return nil
}

// PasswordStrength scores secret on the dashboard's five-point scale.
func PasswordStrength(secret string) (score int, label string) {
	s := password.Score(secret)
	return int(s), s.Label()
}

// checkPolicy enforces the configured minimum length and strength on a new
// secret.
func (e *Engine) checkPolicy(secret string) error {
	if len(secret) < e.config.Password.MinLength {
		return fmt.Errorf("%w: at least %d characters required", ErrPasswordPolicy, e.config.Password.MinLength)
	}
	if s := password.Score(secret); int(s) < e.config.Password.MinStrength {
		return fmt.Errorf("%w: strength %s", ErrPasswordPolicy, s.Label())
	}
	return nil
}
