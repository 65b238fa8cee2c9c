package dashauth

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIncorrectPassword  = errors.New("incorrect current password")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrLoginRateLimited   = errors.New("login rate limited")

	ErrEmailNotFound         = errors.New("no account for this email")
	ErrNoActiveReset         = errors.New("no active password reset")
	ErrResetExpired          = errors.New("reset code expired")
	ErrIncorrectCode         = errors.New("incorrect reset code")
	ErrResetNotVerified      = errors.New("reset code not verified")
	ErrResetAttemptsExceeded = errors.New("reset attempts exceeded")
	ErrResetRateLimited      = errors.New("password reset rate limited")

	ErrPasswordPolicy = errors.New("password does not meet policy")
	ErrInvalidEmail   = errors.New("invalid email address")
	ErrInvalidName    = errors.New("name is required")
	ErrInvalidRole    = errors.New("invalid role")
	ErrInvalidStatus  = errors.New("invalid status")

	ErrUnauthorized     = errors.New("unauthorized")
	ErrPermissionDenied = errors.New("permission denied")
	ErrTokenInvalid     = errors.New("token invalid")

	// ErrStoreUnavailable wraps failures of the key-value backend.
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrEngineNotReady   = errors.New("engine not ready")
)
