package credstore

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Roles and statuses accepted by the store.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleUser      = "user"

	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Record is the persisted form of a user, secret included.
type Record struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"passwordHash"`
	Role         string          `json:"role"`
	Avatar       string          `json:"avatar"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	LastLogin    *time.Time      `json:"lastLogin,omitempty"`
	Sessions     []SessionRecord `json:"sessions"`
}

// SessionRecord is one login of a user.
type SessionRecord struct {
	ID           string    `json:"id"`
	Device       string    `json:"device"`
	IP           string    `json:"ip"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// Candidate describes a user to create.
type Candidate struct {
	Name         string
	Email        string
	PasswordHash string
	// Role defaults to RoleUser when empty.
	Role string
}

// Patch lists the fields to change on Update. Nil fields are left untouched.
type Patch struct {
	Name   *string
	Email  *string
	Role   *string
	Status *string
}

// Session returns the session with id, if the record holds one.
func (r *Record) Session(id string) (SessionRecord, bool) {
	for _, s := range r.Sessions {
		if s.ID == id {
			return s, true
		}
	}
	return SessionRecord{}, false
}

// RemoveSession drops the session with id and reports whether it existed.
func (r *Record) RemoveSession(id string) bool {
	for i, s := range r.Sessions {
		if s.ID == id {
			r.Sessions = append(r.Sessions[:i], r.Sessions[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Record) clone() Record {
	out := *r
	if r.LastLogin != nil {
		t := *r.LastLogin
		out.LastLogin = &t
	}
	out.Sessions = append([]SessionRecord(nil), r.Sessions...)
	return out
}

// NormalizeEmail trims and lower-cases an address for comparison and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AvatarFor returns the upper-cased first letter of name, or "?" for an
// empty name.
func AvatarFor(name string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(name))
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}

// ValidRole reports whether role is one of the dashboard roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	}
	return false
}

// ValidStatus reports whether status is active or inactive.
func ValidStatus(status string) bool {
	return status == StatusActive || status == StatusInactive
}
