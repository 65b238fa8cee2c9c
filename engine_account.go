package dashauth

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/MrEthical07/dashauth/internal/credstore"
	"github.com/MrEthical07/dashauth/permission"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether email looks like name@domain.tld.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// Register creates a plain user account. It does not log the user in.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrInvalidName
	}
	if !ValidEmail(req.Email) {
		return nil, ErrInvalidEmail
	}
	if err := e.checkPolicy(req.Password); err != nil {
		return nil, err
	}
	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.users.Create(ctx, credstore.Candidate{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         credstore.RoleUser,
	})
	if err != nil {
		if errors.Is(err, credstore.ErrDuplicateEmail) {
			e.metrics.Inc(MetricRegisterDuplicate)
		}
		return nil, e.mapStoreErr(err)
	}

	e.metrics.Inc(MetricRegisterSuccess)
	e.emitAudit(ctx, AuditRegister, true, rec.ID, "", nil, func() map[string]string {
		return map[string]string{"email": rec.Email}
	})
	u := toUser(rec)
	return &u, nil
}

// GetUser returns one user. Callers may read themselves; admins and
// moderators may read anyone.
func (e *Engine) GetUser(ctx context.Context, userID int64) (*User, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if _, err := e.requireSelfOr(ctx, userID, permission.UsersList); err != nil {
		return nil, err
	}
	rec, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return nil, e.mapStoreErr(err)
	}
	u := toUser(rec)
	return &u, nil
}

// UpdateProfile changes name, email or role of userID. Users may edit
// themselves; only admins may edit others or change a role.
func (e *Engine) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (*User, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	act, err := e.requireSelfOr(ctx, userID, permission.UsersUpdateAny)
	if err != nil {
		return nil, err
	}

	var patch credstore.Patch
	if upd.Name != nil {
		if strings.TrimSpace(*upd.Name) == "" {
			return nil, ErrInvalidName
		}
		patch.Name = upd.Name
	}
	if upd.Email != nil {
		if !ValidEmail(*upd.Email) {
			return nil, ErrInvalidEmail
		}
		patch.Email = upd.Email
	}
	if upd.Role != nil {
		if !e.roles.Allowed(act.Role, permission.UsersUpdateAny) {
			e.metrics.Inc(MetricPermissionDenied)
			return nil, ErrPermissionDenied
		}
		if !upd.Role.Valid() {
			return nil, ErrInvalidRole
		}
		role := string(*upd.Role)
		patch.Role = &role
	}

	rec, err := e.users.Update(ctx, userID, patch)
	if err != nil {
		return nil, e.mapStoreErr(err)
	}

	e.metrics.Inc(MetricProfileUpdate)
	e.emitAudit(ctx, AuditProfileUpdate, true, userID, "", nil, actorMeta(act.ID))
	u := toUser(rec)
	return &u, nil
}

// ListUsers returns every account. Admins and moderators only.
func (e *Engine) ListUsers(ctx context.Context) ([]User, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if _, err := e.require(ctx, permission.UsersList); err != nil {
		return nil, err
	}

	recs, err := e.users.List(ctx)
	if err != nil {
		return nil, e.mapStoreErr(err)
	}
	out := make([]User, 0, len(recs))
	for _, r := range recs {
		out = append(out, toUser(r))
	}
	return out, nil
}

// DeleteUser removes an account and any pending reset of it. Admins only;
// an admin cannot delete their own account.
func (e *Engine) DeleteUser(ctx context.Context, userID int64) error {
	if e == nil {
		return ErrEngineNotReady
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	act, err := e.require(ctx, permission.UsersDelete)
	if err != nil {
		return err
	}
	if act.ID == userID {
		return ErrPermissionDenied
	}

	if err := e.users.Delete(ctx, userID); err != nil {
		return e.mapStoreErr(err)
	}
	if resetID, err := e.resets.ForUser(ctx, userID); err == nil {
		if err := e.resets.Clear(ctx, resetID, userID); err != nil {
			e.logger.Warn("dashauth: clear reset of deleted user", "user_id", userID, "error", err)
		}
	}

	e.metrics.Inc(MetricAccountDeleted)
	e.emitAudit(ctx, AuditAccountDeleted, true, userID, "", nil, actorMeta(act.ID))
	return nil
}

// SetStatus activates or deactivates an account. Admins only.
func (e *Engine) SetStatus(ctx context.Context, userID int64, status Status) (*User, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setStatus(ctx, userID, func(Status) Status { return status })
}

// ToggleStatus flips an account between active and inactive. Admins only.
func (e *Engine) ToggleStatus(ctx context.Context, userID int64) (*User, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setStatus(ctx, userID, func(cur Status) Status {
		if cur == StatusActive {
			return StatusInactive
		}
		return StatusActive
	})
}

func (e *Engine) setStatus(ctx context.Context, userID int64, next func(Status) Status) (*User, error) {
	act, err := e.require(ctx, permission.UsersStatus)
	if err != nil {
		return nil, err
	}

	rec, err := e.users.Mutate(ctx, userID, func(r *credstore.Record, _ []credstore.Record) error {
		s := next(Status(r.Status))
		if !s.Valid() {
			return credstore.ErrInvalidStatus
		}
		r.Status = string(s)
		return nil
	})
	if err != nil {
		return nil, e.mapStoreErr(err)
	}

	e.metrics.Inc(MetricAccountStatusChanged)
	e.emitAudit(ctx, AuditAccountStatus, true, userID, "", nil, func() map[string]string {
		return map[string]string{"status": rec.Status, "actor_id": itoa(act.ID)}
	})
	u := toUser(rec)
	return &u, nil
}

// mapStoreErr translates credential store errors into engine errors.
func (e *Engine) mapStoreErr(err error) error {
	switch {
	case errors.Is(err, credstore.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, credstore.ErrDuplicateEmail):
		return ErrDuplicateEmail
	case errors.Is(err, credstore.ErrInvalidRole):
		return ErrInvalidRole
	case errors.Is(err, credstore.ErrInvalidStatus):
		return ErrInvalidStatus
	}
	return e.storeErr(err)
}
