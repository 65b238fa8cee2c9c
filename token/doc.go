// Package token encodes and decodes the signed session tokens handed to the
// dashboard after login.
//
// A token is a compact JWT carrying the user id, email, role, session id,
// issue time and expiry. Decoding fails soft: any malformed, tampered,
// wrongly signed or expired input yields (nil, false).
package token
