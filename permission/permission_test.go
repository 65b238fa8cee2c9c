package permission

import (
	"errors"
	"testing"
)

func TestMask(t *testing.T) {
	var m Mask
	m = m.With(0).With(5).With(63).With(64)
	if !m.Has(0) || !m.Has(5) || !m.Has(63) {
		t.Fatalf("expected bits 0, 5, 63 set: %b", m)
	}
	if m.Has(64) || m.Has(-1) {
		t.Fatal("out of range bits must read as unset")
	}
	if m.Without(5).Has(5) {
		t.Fatal("Without did not clear bit")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a, err := r.Register("a")
	if err != nil || a != 0 {
		t.Fatalf("Register(a) = %d, %v", a, err)
	}
	if _, err := r.Register("a"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	b, _ := r.Register("b")
	if got := r.Names(Mask(0).With(b)); len(got) != 1 || got[0] != "b" {
		t.Fatalf("Names = %v", got)
	}

	r.Freeze()
	if _, err := r.Register("c"); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected ErrFrozen, got %v", err)
	}
}

func TestRegistryLimit(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < MaxBits; i++ {
		if _, err := r.Register(string(rune('A' + i))); err != nil {
			t.Fatalf("Register #%d: %v", i, err)
		}
	}
	if _, err := r.Register("overflow"); err == nil {
		t.Fatal("expected limit error")
	}
}

func TestDashboardRoles(t *testing.T) {
	rm := Dashboard()

	tests := []struct {
		role, perm string
		want       bool
	}{
		{RoleAdmin, UsersDelete, true},
		{RoleAdmin, UsersList, true},
		{RoleModerator, UsersList, true},
		{RoleModerator, UsersDelete, false},
		{RoleModerator, UsersStatus, false},
		{RoleUser, UsersList, false},
		{RoleUser, StatsTotal, false},
		{"guest", UsersList, false},
		{RoleAdmin, "no.such.perm", false},
	}
	for _, tc := range tests {
		if got := rm.Allowed(tc.role, tc.perm); got != tc.want {
			t.Errorf("Allowed(%s, %s) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}

	if err := rm.RegisterRole("guest"); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected frozen role manager, got %v", err)
	}
	if !rm.Known(RoleModerator) || rm.Known("guest") {
		t.Fatal("Known mismatch")
	}
}
