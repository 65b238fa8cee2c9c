// Package credstore persists dashboard user records as a single JSON array
// under one key of a [kv.Store].
//
// Every mutation loads the array, applies the change and writes the whole
// array back before returning. Mutations are serialized by the Store's mutex,
// so two writers never interleave a read-modify-write cycle. Reads decode a
// fresh snapshot and never observe a half-applied change.
//
// Emails are unique, compared case-insensitively after trimming. Ids come
// from a counter kept under key+"Seq", so the id of a deleted user is never
// handed to a later one.
package credstore
