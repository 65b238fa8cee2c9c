package internaldefs

import (
	"strconv"

	"github.com/MrEthical07/dashauth"
)

// Label is one name="value" pair of a series.
type Label struct {
	Name  string
	Value string
}

// Series is one engine counter inside a family.
type Series struct {
	ID     dashauth.MetricID
	Labels []Label
}

// Family groups counters published under a single metric name, told apart
// by their labels.
type Family struct {
	Name   string
	Help   string
	Series []Series
}

func series(id dashauth.MetricID, labels ...string) Series {
	s := Series{ID: id}
	for i := 0; i+1 < len(labels); i += 2 {
		s.Labels = append(s.Labels, Label{Name: labels[i], Value: labels[i+1]})
	}
	return s
}

// Families lists every engine counter. Each MetricID appears once.
var Families = []Family{
	{
		Name: "dashauth_logins_total",
		Help: "Login attempts by outcome.",
		Series: []Series{
			series(dashauth.MetricLoginSuccess, "outcome", "success"),
			series(dashauth.MetricLoginFailure, "outcome", "failure"),
			series(dashauth.MetricLoginRateLimited, "outcome", "rate_limited"),
		},
	},
	{
		Name: "dashauth_sessions_total",
		Help: "Session lifecycle events.",
		Series: []Series{
			series(dashauth.MetricSessionCreated, "event", "created"),
			series(dashauth.MetricSessionRevoked, "event", "revoked"),
			series(dashauth.MetricLogout, "event", "logout"),
		},
	},
	{
		Name: "dashauth_registrations_total",
		Help: "Self-service sign-ups by outcome.",
		Series: []Series{
			series(dashauth.MetricRegisterSuccess, "outcome", "success"),
			series(dashauth.MetricRegisterDuplicate, "outcome", "duplicate_email"),
		},
	},
	{
		Name:   "dashauth_profile_updates_total",
		Help:   "Profile changes applied.",
		Series: []Series{series(dashauth.MetricProfileUpdate)},
	},
	{
		Name: "dashauth_password_changes_total",
		Help: "Password changes by outcome.",
		Series: []Series{
			series(dashauth.MetricPasswordChangeSuccess, "outcome", "success"),
			series(dashauth.MetricPasswordChangeInvalidOld, "outcome", "incorrect_password"),
		},
	},
	{
		Name: "dashauth_password_resets_total",
		Help: "Password reset steps by stage and outcome.",
		Series: []Series{
			series(dashauth.MetricPasswordResetRequest, "stage", "request", "outcome", "issued"),
			series(dashauth.MetricPasswordResetRateLimited, "stage", "request", "outcome", "rate_limited"),
			series(dashauth.MetricPasswordResetVerifySuccess, "stage", "verify", "outcome", "success"),
			series(dashauth.MetricPasswordResetVerifyFailure, "stage", "verify", "outcome", "failure"),
			series(dashauth.MetricPasswordResetAttemptsExceeded, "stage", "verify", "outcome", "attempts_exceeded"),
			series(dashauth.MetricPasswordResetConfirmSuccess, "stage", "confirm", "outcome", "success"),
			series(dashauth.MetricPasswordResetConfirmFailure, "stage", "confirm", "outcome", "failure"),
		},
	},
	{
		Name: "dashauth_account_changes_total",
		Help: "Administrative account changes.",
		Series: []Series{
			series(dashauth.MetricAccountStatusChanged, "change", "status"),
			series(dashauth.MetricAccountDeleted, "change", "delete"),
		},
	},
	{
		Name:   "dashauth_authorization_total",
		Help:   "Account operations refused for the caller's role.",
		Series: []Series{series(dashauth.MetricPermissionDenied, "status", "denied")},
	},
}

// The audit family is labelled status="delivered" or status="dropped";
// drops also carry event_type.
const (
	AuditEventsName = "dashauth_audit_events_total"
	AuditEventsHelp = "Audit events by delivery status."
)

// Login latency histogram.
const (
	LoginLatencyName = "dashauth_login_latency_seconds"
	LoginLatencyHelp = "Time spent in Login, password hashing included."
)

// LatencyBounds returns the latency bucket bounds in seconds. The engine
// keeps one further bucket for anything slower.
func LatencyBounds() []float64 {
	bounds := dashauth.LoginLatencyBounds()
	out := make([]float64, len(bounds))
	for i, b := range bounds {
		out[i] = b.Seconds()
	}
	return out
}

// FormatBound renders a bound the way Prometheus writes le values.
func FormatBound(seconds float64) string {
	return strconv.FormatFloat(seconds, 'g', -1, 64)
}

// Cumulative turns per-bucket counts into running totals over
// len(LatencyBounds())+1 buckets, padding or truncating raw to fit.
func Cumulative(raw []uint64) []uint64 {
	out := make([]uint64, len(dashauth.LoginLatencyBounds())+1)
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
