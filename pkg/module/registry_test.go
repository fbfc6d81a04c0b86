package module

import (
	"context"
	"strings"
	"testing"
)

type stubModule struct {
	name string
	deps []string
}

func (m *stubModule) Name() string                 { return m.name }
func (m *stubModule) Dependencies() []string       { return m.deps }
func (m *stubModule) Install(context.Context) error { return nil }
func (m *stubModule) Status(context.Context) (*Status, error) {
	return &Status{Module: m.name, Healthy: true}, nil
}

func buildRegistry(t *testing.T, modules ...*stubModule) *Registry {
	t.Helper()
	registry := NewRegistry()
	for _, m := range modules {
		if err := registry.Register(m); err != nil {
			t.Fatalf("Register(%s) error = %v", m.name, err)
		}
	}
	return registry
}

func names(modules []Module) []string {
	var out []string
	for _, m := range modules {
		out = append(out, m.Name())
	}
	return out
}

// TestResolveDependencyOrder verifies that a module resolves after
// everything it depends on, pulling transitive dependencies in.
func TestResolveDependencyOrder(t *testing.T) {
	registry := buildRegistry(t,
		&stubModule{name: "database"},
		&stubModule{name: "proxy"},
		&stubModule{name: "runtime"},
		&stubModule{name: "panel", deps: []string{"database", "proxy", "runtime"}},
	)

	resolved, err := registry.Resolve("panel")
	if err != nil {
		t.Fatalf("Resolve(panel) error = %v", err)
	}

	got := names(resolved)
	want := []string{"database", "proxy", "runtime", "panel"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Resolve(panel) = %v, want %v", got, want)
	}
}

// TestResolveSubset verifies that resolving one independent module does not
// drag in unrelated ones.
func TestResolveSubset(t *testing.T) {
	registry := buildRegistry(t,
		&stubModule{name: "database"},
		&stubModule{name: "proxy"},
	)

	resolved, err := registry.Resolve("proxy")
	if err != nil {
		t.Fatalf("Resolve(proxy) error = %v", err)
	}
	if len(resolved) != 1 || resolved[0].Name() != "proxy" {
		t.Errorf("Resolve(proxy) = %v, want [proxy]", names(resolved))
	}
}

// TestResolveAll verifies the no-argument form covers the whole catalog
// with dependencies ahead of their dependents.
func TestResolveAll(t *testing.T) {
	registry := buildRegistry(t,
		&stubModule{name: "panel", deps: []string{"database"}},
		&stubModule{name: "database"},
	)

	resolved, err := registry.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	got := names(resolved)
	if len(got) != 2 || got[0] != "database" || got[1] != "panel" {
		t.Errorf("Resolve() = %v, want [database panel]", got)
	}
}

// TestResolveUnknownModule verifies unknown names fail, both as the request
// and as a declared dependency.
func TestResolveUnknownModule(t *testing.T) {
	registry := buildRegistry(t,
		&stubModule{name: "panel", deps: []string{"ghost"}},
	)

	if _, err := registry.Resolve("missing"); err == nil {
		t.Error("Resolve(missing) expected an error")
	}
	if _, err := registry.Resolve("panel"); err == nil {
		t.Error("Resolve(panel) with unknown dependency expected an error")
	}
}

// TestResolveCycle verifies a dependency cycle is reported instead of
// looping.
func TestResolveCycle(t *testing.T) {
	registry := buildRegistry(t,
		&stubModule{name: "a", deps: []string{"b"}},
		&stubModule{name: "b", deps: []string{"a"}},
	)

	_, err := registry.Resolve("a")
	if err == nil {
		t.Fatal("Resolve() with cycle expected an error")
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Errorf("error = %q, want mention of cycle", err)
	}
}

// TestRegisterDuplicate verifies duplicate names are rejected.
func TestRegisterDuplicate(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&stubModule{name: "database"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := registry.Register(&stubModule{name: "database"}); err == nil {
		t.Error("Register() duplicate expected an error")
	}
}
