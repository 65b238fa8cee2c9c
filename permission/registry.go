package permission

import (
	"errors"
	"fmt"
	"sync"
)

// MaxBits is the number of distinct permissions a Registry can hold.
const MaxBits = 64

var (
	ErrFrozen        = errors.New("permission: registry frozen")
	ErrUnknown       = errors.New("permission: not registered")
	ErrDuplicateName = errors.New("permission: already registered")
)

// Registry maps permission names to bit positions.
type Registry struct {
	mu        sync.RWMutex
	nameToBit map[string]int
	bitToName []string
	frozen    bool
}

func NewRegistry() *Registry {
	return &Registry{nameToBit: make(map[string]int)}
}

// Register assigns the next free bit to name.
func (r *Registry) Register(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.frozen:
		return -1, ErrFrozen
	case name == "":
		return -1, errors.New("permission: empty name")
	case len(r.bitToName) >= MaxBits:
		return -1, fmt.Errorf("permission: limit of %d reached", MaxBits)
	}
	if _, ok := r.nameToBit[name]; ok {
		return -1, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}

	bit := len(r.bitToName)
	r.nameToBit[name] = bit
	r.bitToName = append(r.bitToName, name)
	return bit, nil
}

// Bit returns the bit assigned to name.
func (r *Registry) Bit(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bit, ok := r.nameToBit[name]
	return bit, ok
}

// Names lists the permissions set in m, in registration order.
func (r *Registry) Names(m Mask) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for bit, name := range r.bitToName {
		if m.Has(bit) {
			out = append(out, name)
		}
	}
	return out
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bitToName)
}
