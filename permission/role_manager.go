package permission

import (
	"errors"
	"fmt"
	"sync"
)

// RoleManager records the permission mask granted to each role.
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]Mask
	frozen bool
}

func NewRoleManager(registry *Registry) *RoleManager {
	return &RoleManager{
		registry: registry,
		roles:    make(map[string]Mask),
	}
}

// RegisterRole grants perms to role. Every permission must already be
// registered.
func (rm *RoleManager) RegisterRole(role string, perms ...string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return ErrFrozen
	}
	if role == "" {
		return errors.New("permission: empty role name")
	}
	if _, ok := rm.roles[role]; ok {
		return fmt.Errorf("permission: role %q already registered", role)
	}

	var m Mask
	for _, p := range perms {
		bit, ok := rm.registry.Bit(p)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknown, p)
		}
		m = m.With(bit)
	}
	rm.roles[role] = m
	return nil
}

// Mask returns the mask for role. Unknown roles report false.
func (rm *RoleManager) Mask(role string) (Mask, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	m, ok := rm.roles[role]
	return m, ok
}

// Allowed reports whether role holds perm. Unknown roles and permissions are
// denied.
func (rm *RoleManager) Allowed(role, perm string) bool {
	bit, ok := rm.registry.Bit(perm)
	if !ok {
		return false
	}
	m, ok := rm.Mask(role)
	return ok && m.Has(bit)
}

// Known reports whether role is registered.
func (rm *RoleManager) Known(role string) bool {
	_, ok := rm.Mask(role)
	return ok
}

func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	rm.frozen = true
	rm.mu.Unlock()
}

// Registry returns the registry the manager resolves permission names with.
func (rm *RoleManager) Registry() *Registry { return rm.registry }
