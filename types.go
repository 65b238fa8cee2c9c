package dashauth

import (
	"context"
	"time"

	"github.com/MrEthical07/dashauth/internal/credstore"
	"github.com/MrEthical07/dashauth/permission"
)

// Role is a dashboard role.
type Role string

const (
	RoleAdmin     Role = permission.RoleAdmin
	RoleModerator Role = permission.RoleModerator
	RoleUser      Role = permission.RoleUser
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return credstore.ValidRole(string(r)) }

// Status is an account status. Inactive accounts cannot log in.
type Status string

const (
	StatusActive   Status = credstore.StatusActive
	StatusInactive Status = credstore.StatusInactive
)

func (s Status) Valid() bool { return credstore.ValidStatus(string(s)) }

// User is the public view of an account. It never carries the password hash.
type User struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	Avatar    string     `json:"avatar"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	Sessions  []Session  `json:"sessions"`
}

// Session is one login of a user.
type Session struct {
	ID           string    `json:"id"`
	Device       string    `json:"device"`
	IP           string    `json:"ip"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// LoginResult is returned by Engine.Login.
type LoginResult struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RegisterRequest describes a self-service sign-up.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate lists profile fields to change; nil fields stay as they are.
// Role is honoured only for admins.
type ProfileUpdate struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Role  *Role   `json:"role,omitempty"`
}

// ResetTicket identifies a pending password reset. The code itself is only
// ever handed to the Notifier.
type ResetTicket struct {
	ResetID   string    `json:"resetId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// VerifyResult is returned once a reset code has been accepted.
type VerifyResult struct {
	UserID int64 `json:"userId"`
}

// Stats are the dashboard counters shown to the signed-in user.
type Stats struct {
	// TotalUsers is zero unless the caller may see it (admin, moderator).
	TotalUsers     int        `json:"totalUsers"`
	ActiveSessions int        `json:"activeSessions"`
	LastLogin      *time.Time `json:"lastLogin,omitempty"`
}

// Notifier delivers reset codes out of band (email, SMS, a log line).
type Notifier interface {
	SendResetCode(ctx context.Context, email, code string, expiresAt time.Time) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, email, code string, expiresAt time.Time) error

func (f NotifierFunc) SendResetCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	return f(ctx, email, code, expiresAt)
}

func toUser(r credstore.Record) User {
	u := User{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Role:      Role(r.Role),
		Avatar:    r.Avatar,
		Status:    Status(r.Status),
		CreatedAt: r.CreatedAt,
		Sessions:  make([]Session, 0, len(r.Sessions)),
	}
	if r.LastLogin != nil {
		t := *r.LastLogin
		u.LastLogin = &t
	}
	for _, s := range r.Sessions {
		u.Sessions = append(u.Sessions, Session(s))
	}
	return u
}
