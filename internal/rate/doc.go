// Package rate implements fixed-window attempt counters on top of a
// [kv.Store].
//
// A counter is created by its first hit, which also starts the window; later
// hits never extend it. Keys:
//
//	<prefix>rl:login:<email>     failed logins per account
//	<prefix>rl:login:ip:<ip>     failed logins per client address
//	<prefix>rl:reset:<email>     password-reset requests per account
package rate
