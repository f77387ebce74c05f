package fetch

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DefaultClass is the client class used when an API names none.
const DefaultClass = "Client"

var (
	// ErrUnknownModule is returned for a module with no registered clients.
	ErrUnknownModule = errors.New("no module named")
	// ErrUnknownClass is returned for a class missing from a known module.
	ErrUnknownClass = errors.New("unknown client class")
)

// Factory builds a client instance. Each fetch gets its own instance.
type Factory func() any

// Registry maps module names to client classes. It replaces dynamic
// imports: only registered clients can be fetched from.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]map[string]Factory)}
}

// Register binds module/class to factory. An empty class registers DefaultClass.
func (r *Registry) Register(module, class string, factory Factory) {
	if class == "" {
		class = DefaultClass
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	classes, ok := r.modules[module]
	if !ok {
		classes = make(map[string]Factory)
		r.modules[module] = classes
	}
	classes[class] = factory
}

// New instantiates module/class.
func (r *Registry) New(module, class string) (any, error) {
	if class == "" {
		class = DefaultClass
	}
	r.mu.RLock()
	classes, ok := r.modules[module]
	var factory Factory
	if ok {
		factory = classes[class]
	}
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownModule, module)
	}
	if factory == nil {
		return nil, fmt.Errorf("module %q: %w %q", module, ErrUnknownClass, class)
	}
	return factory(), nil
}

// Modules lists the registered module names, sorted.
func (r *Registry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
