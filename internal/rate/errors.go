package rate

import "errors"

var (
	ErrRateLimited = errors.New("rate limited")
	ErrUnavailable = errors.New("rate limiter backend unavailable")
)
