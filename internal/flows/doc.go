// Package flows orchestrates the engine's multi-step operations: login,
// logout, current-session resolution and the password-reset state machine.
//
// Each Run function takes a dependency struct built by the engine and holds
// no state between calls. Host-level sentinel errors, metric ids and audit
// event names are injected so this package never imports the root package.
package flows
