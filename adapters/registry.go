package adapters

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/xpomul/workspacefs"
)

// Factory opens a FileService for the given root
type Factory func(root string) (workspacefs.FileService, error)

// BackendSpec is the JSON form of a backend selection, e.g.
// {"type":"file","root":"/home/me"}
type BackendSpec struct {
	Type string `json:"type"`
	Root string `json:"root,omitempty"`
}

// Registry maps backend types to factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register ties a factory to a backend type. The first registration for a
// type wins
func (r *Registry) Register(backendType string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[backendType]; ok {
		return
	}
	r.factories[backendType] = f
}

// GetFactory returns the factory registered for backendType
func (r *Registry) GetFactory(backendType string) (Factory, error) {
	r.mu.RLock()
	f, ok := r.factories[backendType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no factory for %q", backendType)
	}
	return f, nil
}

// Types lists registered backend types in sorted order
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for k := range r.factories {
		types = append(types, k)
	}
	slices.Sort(types)
	return types
}

// New opens a backend of the given type
func (r *Registry) New(backendType, root string) (workspacefs.FileService, error) {
	f, err := r.GetFactory(backendType)
	if err != nil {
		return nil, err
	}
	return f(root)
}

// NewFromJSON picks the factory based on the "type" field of raw
func (r *Registry) NewFromJSON(raw []byte) (workspacefs.FileService, error) {
	var spec BackendSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, err
	}
	if spec.Type == "" {
		return nil, fmt.Errorf("backend spec is missing \"type\"")
	}
	return r.New(spec.Type, spec.Root)
}
