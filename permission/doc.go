// Package permission maps dashboard roles to permission bitmasks.
//
// A [Registry] assigns each named permission a bit in a 64-bit [Mask]; a
// [RoleManager] records the mask granted to each role. Both are frozen after
// setup and are read-only afterwards. [Dashboard] builds the fixed
// admin/moderator/user table used by the engine.
package permission
