package doodle

import (
	"fmt"
	"slices"
	"sync"
)

// Registry maps class names to definitions. It is the factory a drawing instantiates
// doodles from.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds definitions. The call is all or nothing: an invalid definition, a
// duplicate class name or an in-front-of cycle rejects the whole batch.
func (r *Registry) Register(defs ...*Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]*Definition, len(r.defs)+len(defs))
	for name, def := range r.defs {
		next[name] = def
	}
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return err
		}
		if _, exists := next[def.ClassName]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateClass, def.ClassName)
		}
		next[def.ClassName] = def
	}
	if err := checkOrder(next); err != nil {
		return err
	}

	r.defs = next
	return nil
}

// Lookup returns the definition of a class.
func (r *Registry) Lookup(className string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[className]
	return def, ok
}

// Names returns the registered class names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// checkOrder rejects in-front-of constraints that form a cycle among registered classes.
// Classes named in InFrontOf but not registered are ignored.
func checkOrder(defs map[string]*Definition) error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(defs))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("%w: %v", ErrOrderCycle, append(path, name))
		case done:
			return nil
		}
		state[name] = visiting
		for _, behind := range defs[name].InFrontOf {
			if _, ok := defs[behind]; !ok {
				continue
			}
			if err := visit(behind, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}
