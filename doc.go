// Package dashauth is the authentication core of a small admin dashboard:
// user accounts, password checks, login sessions with signed tokens, and a
// code-based password reset.
//
// Build an [Engine] with [New]:
//
//	engine, err := dashauth.New().
//		WithStore(kv.NewMemory()).
//		WithSeedUsers(true).
//		Build(ctx)
//
// All state lives behind a [kv.Store]. The engine keeps a "current session"
// pointer in that store, so a single local client (the dashboard, a CLI) can
// call [Engine.Login], [Engine.ResolveCurrentUser] and [Engine.Logout]
// without carrying the token itself. Servers instead pass the bearer token
// per request with [WithAccessToken] or call [Engine.Authenticate].
//
// Every read path returns the sanitized [User]; password hashes never leave
// the engine.
package dashauth
