// Package internal holds helpers private to dashauth: reset-code generation
// and hashing.
//
// Sub-packages:
//
//   - audit: async event dispatch and sinks
//   - cli: the dashauth command-line client
//   - config: layered configuration for the commands
//   - credstore: the user repository
//   - flows: login, logout and password-reset orchestration
//   - httpapi: the JSON API served by dashauth-server
//   - rate: fixed-window attempt counters
//   - resets: pending password-reset slots
package internal
