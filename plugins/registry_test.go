package plugins

import (
	"testing"
	"time"
)

type fakePlugin struct {
	name  string
	item  *ContextItem
	err   error
	crit  bool
	calls int
}

func (f *fakePlugin) Name() string { return f.name }

func (f *fakePlugin) Evaluate(_ time.Time, _ []ContextItem) (*ContextItem, error) {
	f.calls++
	return f.item, f.err
}

func (f *fakePlugin) Critical() bool { return f.crit }

func contribution(name, value string) *ContextItem {
	return &ContextItem{Name: name, Value: value, Description: name}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakePlugin{name: "alpha"}, 1, true); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := r.Register(&fakePlugin{name: "alpha"}, 2, true); err == nil {
		t.Fatal("expected error registering duplicate name")
	}
}

func TestRegistry_RejectsNilAndUnnamed(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(nil, 1, true); err == nil {
		t.Error("expected error for nil plugin")
	}
	if err := r.Register(&fakePlugin{name: ""}, 1, true); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestRegistry_EnableDisableUnknown(t *testing.T) {
	r := NewRegistry()
	if err := r.Enable("ghost"); err == nil {
		t.Error("expected error enabling unknown plugin")
	}
	if err := r.Disable("ghost"); err == nil {
		t.Error("expected error disabling unknown plugin")
	}
}

func TestRegistry_SnapshotOrdering(t *testing.T) {
	r := NewRegistry()
	// Registered out of order; same order value for beta/alpha to exercise
	// the name tiebreak.
	mustRegister(t, r, &fakePlugin{name: "gamma"}, 5, true)
	mustRegister(t, r, &fakePlugin{name: "beta"}, 2, true)
	mustRegister(t, r, &fakePlugin{name: "alpha"}, 2, true)
	mustRegister(t, r, &fakePlugin{name: "delta"}, 1, true)

	got := names(r.Snapshot())
	want := []string{"delta", "alpha", "beta", "gamma"}
	if !equalStrings(got, want) {
		t.Errorf("snapshot order = %v, want %v", got, want)
	}
}

func TestRegistry_SnapshotExcludesDisabled(t *testing.T) {
	r := NewRegistry()
	mustRegister(t, r, &fakePlugin{name: "alpha"}, 1, true)
	mustRegister(t, r, &fakePlugin{name: "beta"}, 2, false)

	got := names(r.Snapshot())
	if !equalStrings(got, []string{"alpha"}) {
		t.Errorf("snapshot = %v, want [alpha]", got)
	}

	if err := r.Enable("beta"); err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	if err := r.Disable("alpha"); err != nil {
		t.Fatalf("disable failed: %v", err)
	}

	got = names(r.Snapshot())
	if !equalStrings(got, []string{"beta"}) {
		t.Errorf("snapshot after toggle = %v, want [beta]", got)
	}
}

func TestRegistry_SnapshotIsolatedFromLaterMutation(t *testing.T) {
	r := NewRegistry()
	mustRegister(t, r, &fakePlugin{name: "alpha"}, 1, true)
	mustRegister(t, r, &fakePlugin{name: "beta"}, 2, true)

	snapshot := r.Snapshot()
	if err := r.Disable("beta"); err != nil {
		t.Fatalf("disable failed: %v", err)
	}

	if len(snapshot) != 2 {
		t.Errorf("snapshot taken before mutation changed size: %d", len(snapshot))
	}
}

func TestRegistry_ListIncludesDisabled(t *testing.T) {
	r := NewRegistry()
	mustRegister(t, r, &fakePlugin{name: "alpha"}, 2, false)
	mustRegister(t, r, &fakePlugin{name: "beta"}, 1, true)

	statuses := r.List()
	if len(statuses) != 2 {
		t.Fatalf("list size = %d, want 2", len(statuses))
	}
	if statuses[0].Name != "beta" || !statuses[0].Enabled {
		t.Errorf("first status = %+v", statuses[0])
	}
	if statuses[1].Name != "alpha" || statuses[1].Enabled {
		t.Errorf("second status = %+v", statuses[1])
	}
}

func mustRegister(t *testing.T, r *Registry, p Plugin, order int, enabled bool) {
	t.Helper()
	if err := r.Register(p, order, enabled); err != nil {
		t.Fatalf("register %s: %v", p.Name(), err)
	}
}

func names(plugins []Plugin) []string {
	result := make([]string, len(plugins))
	for i, p := range plugins {
		result[i] = p.Name()
	}
	return result
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
