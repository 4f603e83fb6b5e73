package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps resource type names to kinds.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Kind)}
}

// Register adds k under its metadata name.
func (r *Registry) Register(k Kind) error {
	if k == nil {
		return fmt.Errorf("kind is nil")
	}
	meta := k.Metadata()
	if err := meta.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[meta.Name]; exists {
		return ErrDuplicateKind{Name: meta.Name}
	}
	r.kinds[meta.Name] = k
	return nil
}

// Get retrieves a kind by name.
func (r *Registry) Get(name string) (Kind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	k, ok := r.kinds[name]
	if !ok {
		return nil, ErrKindNotFound{Name: name}
	}
	return k, nil
}

// List returns the metadata of every registered kind sorted by name.
func (r *Registry) List() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Metadata, 0, len(r.kinds))
	for _, k := range r.kinds {
		out = append(out, k.Metadata())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

var (
	defaultMu       sync.Mutex
	defaultRegistry = NewRegistry()
)

// RegisterKind adds k to the process-wide registry. Kind packages call it from init.
func RegisterKind(k Kind) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultRegistry.Register(k)
}

// Default returns the process-wide registry.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultRegistry
}

// ResetRegistry clears the process-wide registry (for tests).
func ResetRegistry() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRegistry = NewRegistry()
}
