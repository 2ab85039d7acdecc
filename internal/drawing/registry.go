package drawing

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var ErrDuplicateDrawing = errors.New("drawing already registered")

// Registry tracks live drawings by name for components that coordinate across them.
type Registry struct {
	mu       sync.RWMutex
	drawings map[string]*Drawing
}

func NewRegistry() *Registry {
	return &Registry{drawings: make(map[string]*Drawing)}
}

func (r *Registry) Register(d *Drawing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.drawings[d.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateDrawing, d.Name())
	}
	r.drawings[d.Name()] = d
	return nil
}

// Unregister removes a drawing when its owner tears it down.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drawings, name)
}

func (r *Registry) Lookup(name string) (*Drawing, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drawings[name]
	return d, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.drawings))
	for name := range r.drawings {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// AllReady reports whether every registered drawing has finished initializing.
func (r *Registry) AllReady() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.drawings {
		if !d.Ready() {
			return false
		}
	}
	return true
}
