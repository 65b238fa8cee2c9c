package dashauth

import (
	"io"
	"log/slog"

	"github.com/MrEthical07/dashauth/internal/audit"
)

// Audit event names.
const (
	AuditLoginSuccess         = "login_success"
	AuditLoginFailure         = "login_failure"
	AuditLoginRateLimited     = "login_rate_limited"
	AuditLogout               = "logout"
	AuditSessionRevoked       = "session_revoked"
	AuditRegister             = "register"
	AuditProfileUpdate        = "profile_update"
	AuditPasswordChange       = "password_change"
	AuditAccountDeleted       = "account_deleted"
	AuditAccountStatus        = "account_status_changed"
	AuditPasswordResetRequest = "password_reset_request"
	AuditPasswordResetVerify  = "password_reset_verify"
	AuditPasswordResetConfirm = "password_reset_confirm"
)

type (
	AuditEvent     = audit.Event
	AuditSink      = audit.Sink
	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	SlogSink       = audit.SlogSink
)

func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

// NewSlogSink mirrors audit events to log: successes at Info, failures at
// Warn.
func NewSlogSink(log *slog.Logger) *SlogSink { return audit.NewSlogSink(log) }
