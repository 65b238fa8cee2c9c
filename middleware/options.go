package middleware

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/dashauth"
)

// ErrorWriter renders a rejected request. err is one of
// dashauth.ErrUnauthorized, dashauth.ErrAccountDisabled,
// dashauth.ErrPermissionDenied or dashauth.ErrStoreUnavailable.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Option configures Guard, RequireRole and RequirePermission.
type Option func(*options)

type options struct {
	onError ErrorWriter
}

// WithErrorWriter replaces the plain-text rejection body.
func WithErrorWriter(fn ErrorWriter) Option {
	return func(o *options) {
		if fn != nil {
			o.onError = fn
		}
	}
}

func newOptions(opts []Option) options {
	o := options{onError: plainError}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func plainError(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, dashauth.ErrAccountDisabled):
		http.Error(w, "account disabled", http.StatusForbidden)
	case errors.Is(err, dashauth.ErrPermissionDenied):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, dashauth.ErrStoreUnavailable):
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
}
