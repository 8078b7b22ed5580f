package node

import (
	"fmt"
	"slices"

	"github.com/ryandielhenn/glomers/internal/telemetry"
)

// LookupError reports a message for a node that was never initialized.
type LookupError struct {
	ID string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("node %q has not been initialized", e.ID)
}

// Registry maps node ids to live nodes. It is owned by the dispatch loop
// and passed to it explicitly.
type Registry struct {
	nodes map[string]*Node
	opts  []Option
}

// NewRegistry returns an empty registry. opts are applied to every node
// it creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		nodes: make(map[string]*Node),
		opts:  opts,
	}
}

// Register creates a node for id, replacing any node already registered
// under it.
func (r *Registry) Register(id string, members []string) *Node {
	n := NewNode(id, members, r.opts...)
	r.nodes[id] = n
	telemetry.Nodes.Set(float64(len(r.nodes)))
	return n
}

func (r *Registry) Get(id string) (*Node, error) {
	n, ok := r.nodes[id]
	if !ok {
		return nil, &LookupError{ID: id}
	}
	return n, nil
}

func (r *Registry) Len() int {
	return len(r.nodes)
}

// IDs returns the registered node ids in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.nodes))
	for id := range r.nodes {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
