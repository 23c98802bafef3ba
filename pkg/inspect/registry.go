package inspect

import (
	"sync"

	"github.com/pulse-dev/pulse/pkg/pulse"
)

// Registry is the set of named nodes the inspector reports on. The engine
// itself has no global node list (edges are the only operational structure),
// so hosts register the nodes they want visible, under stable names.
type Registry struct {
	mu    sync.RWMutex
	names map[uint64]string
	nodes []pulse.Source
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		names: make(map[uint64]string),
	}
}

// Add registers a node under the given name. Register everything before
// starting the server; nodes added later are not picked up by the change
// feed.
func (r *Registry) Add(name string, s pulse.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.names[s.ID()]; ok {
		return
	}
	r.names[s.ID()] = name
	r.nodes = append(r.nodes, s)
}

// Name returns the registered name for a node ID, or "" if unknown.
func (r *Registry) Name(id uint64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names[id]
}

// Nodes returns the registered nodes in registration order.
func (r *Registry) Nodes() []pulse.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]pulse.Source, len(r.nodes))
	copy(out, r.nodes)
	return out
}
