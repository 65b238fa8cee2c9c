// Package middleware adapts a dashauth.Engine to net/http.
//
//   - [ClientInfo] records the caller's address and user agent for session
//     bookkeeping.
//   - [Guard] authenticates the bearer token and makes it the acting
//     identity for engine calls made while serving the request.
//   - [RequireRole] and [RequirePermission] gate routes behind a Guard.
//
// Rejections are written with http.Error unless [WithErrorWriter] supplies
// another renderer.
//
// Decisions are delegated to the Engine; this package parses no tokens.
package middleware
