// Package eventtype maintains the enumerated set of event type tags the
// engine will accept and fan out.
//
// Subscription filters are matched against this set exactly, with no glob
// or pattern matching, which keeps intake matching O(1) per subscription
// and the filter sets auditable.
package eventtype

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
)

var (
	// ErrUnknownType is returned when a name is not in the registry.
	ErrUnknownType = errors.New("eventtype: unknown event type")

	// ErrValidationFailed is returned when an event payload does not
	// satisfy its type's JSON Schema.
	ErrValidationFailed = errors.New("eventtype: payload validation failed")
)

// Definition describes one supported event type.
type Definition struct {
	// Name is the dot-separated event type tag (e.g. "clip.approved").
	Name string `json:"name"`

	// Description is a human-readable summary for API consumers.
	Description string `json:"description,omitempty"`

	// Group collects related types (e.g. "clip", "submission").
	Group string `json:"group,omitempty"`

	// Schema is an optional JSON Schema that event payloads of this type
	// must satisfy at intake time.
	Schema json.RawMessage `json:"schema,omitempty"`
}

// Registry is the set of event types the engine knows about. It is populated
// at wire-up time by the host application and read on every publish.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]Definition)}
}

// Register adds or replaces an event type definition.
func (r *Registry) Register(defs ...Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, def := range defs {
		if def.Name == "" {
			continue
		}
		r.types[def.Name] = def
	}
}

// Known reports whether the given event type tag is registered.
func (r *Registry) Known(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[name]
	return ok
}

// Get returns the definition for a registered event type.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.types[name]
	return def, ok
}

// List returns all registered definitions sorted by name.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.types))
	for _, def := range r.types {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Unknown returns the subset of names that are not registered. Used to
// validate subscription filter sets in one pass.
func (r *Registry) Unknown(names []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var missing []string
	for _, name := range names {
		if _, ok := r.types[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
