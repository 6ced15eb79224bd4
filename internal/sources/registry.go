package sources

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry owns every known source and the subset currently enabled.
// Iteration follows registration order.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	sources map[string]Source
	enabled map[string]bool
}

func NewRegistry(srcs ...Source) *Registry {
	r := &Registry{
		sources: make(map[string]Source),
		enabled: make(map[string]bool),
	}
	for _, src := range srcs {
		r.Register(src)
	}
	return r
}

// Register adds src enabled. Registering an id twice replaces the source but
// keeps its position and enabled state.
func (r *Registry) Register(src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := src.ID()
	if _, exists := r.sources[id]; !exists {
		r.order = append(r.order, id)
		r.enabled[id] = true
	}
	r.sources[id] = src
	log.Debug().Str("op", "sources/registry").Msgf("registered source %s", id)
}

func (r *Registry) ListAll() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Source, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sources[id])
	}
	return out
}

func (r *Registry) Get(id string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[id]
	return src, ok
}

func (r *Registry) IsEnabled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[id]
}

// SetEnabled is a no-op for unknown ids.
func (r *Registry) SetEnabled(id string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[id]; !ok {
		return
	}
	r.enabled[id] = enabled
}

// SetEnabledSet enables exactly the known ids in ids and disables the rest.
func (r *Registry) SetEnabledSet(ids []string) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		r.enabled[id] = want[id]
	}
}

// Enabled lists the enabled ids in registration order.
func (r *Registry) Enabled() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, id := range r.order {
		if r.enabled[id] {
			out = append(out, id)
		}
	}
	return out
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
