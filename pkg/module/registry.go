package module

import (
	"fmt"
)

// Registry holds the module catalog and resolves install order from
// declared dependencies
type Registry struct {
	modules map[string]Module
	order   []string // registration order, used as the deterministic tie-break
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]Module),
	}
}

// Register adds a module to the catalog. Names are unique.
func (r *Registry) Register(m Module) error {
	name := m.Name()
	if name == "" {
		return fmt.Errorf("module requires a name")
	}
	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("module %s already registered", name)
	}
	r.modules[name] = m
	r.order = append(r.order, name)
	return nil
}

// Get returns the named module
func (r *Registry) Get(name string) (Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// Names returns all registered module names in registration order
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Resolve expands the requested modules to their transitive dependency
// closure and returns them in dependency order: every module appears after
// everything it depends on. With no names it resolves the whole catalog.
// Unknown names and dependency cycles are errors.
func (r *Registry) Resolve(names ...string) ([]Module, error) {
	if len(names) == 0 {
		names = r.order
	}

	// Collect the transitive closure of the request.
	wanted := make(map[string]bool)
	var expand func(name string) error
	expand = func(name string) error {
		if wanted[name] {
			return nil
		}
		m, ok := r.modules[name]
		if !ok {
			return fmt.Errorf("unknown module: %s", name)
		}
		wanted[name] = true
		for _, dep := range m.Dependencies() {
			if err := expand(dep); err != nil {
				return fmt.Errorf("module %s: %w", name, err)
			}
		}
		return nil
	}
	for _, name := range names {
		if err := expand(name); err != nil {
			return nil, err
		}
	}

	// Kahn's algorithm over the closure, visiting ready modules in
	// registration order so the result is stable across runs.
	indegree := make(map[string]int, len(wanted))
	dependents := make(map[string][]string, len(wanted))
	for name := range wanted {
		for _, dep := range r.modules[name].Dependencies() {
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var resolved []Module
	for len(resolved) < len(wanted) {
		progressed := false
		for _, name := range r.order {
			if !wanted[name] || indegree[name] != 0 {
				continue
			}
			resolved = append(resolved, r.modules[name])
			indegree[name] = -1 // visited
			for _, dependent := range dependents[name] {
				indegree[dependent]--
			}
			progressed = true
		}
		if !progressed {
			return nil, fmt.Errorf("dependency cycle among modules: %v", remaining(wanted, indegree))
		}
	}
	return resolved, nil
}

func remaining(wanted map[string]bool, indegree map[string]int) []string {
	var names []string
	for name := range wanted {
		if indegree[name] > 0 {
			names = append(names, name)
		}
	}
	return names
}
