package preprocess

import "figmagen/internal/types"

// Registry collects the nodes classified as vector leaves, keyed by id and in
// the order they were registered. A Registry belongs to one preprocessing run
// and is not safe for concurrent use.
type Registry struct {
	byID map[string]*types.Node
	ids  []string
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*types.Node)}
}

func (r *Registry) add(n *types.Node) {
	if _, ok := r.byID[n.ID]; !ok {
		r.ids = append(r.ids, n.ID)
	}
	r.byID[n.ID] = n
}

func (r *Registry) Get(id string) (*types.Node, bool) {
	if r == nil {
		return nil, false
	}
	n, ok := r.byID[id]
	return n, ok
}

func (r *Registry) Contains(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// IDs returns registered ids in registration order.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.ids...)
}

// Nodes returns registered nodes in registration order.
func (r *Registry) Nodes() []*types.Node {
	if r == nil {
		return nil
	}
	out := make([]*types.Node, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.ids)
}

// Merge appends other's entries after r's, keeping other's order. An id
// already present in r keeps its original position but now maps to other's
// node, matching the last-wins rule of registration.
func (r *Registry) Merge(other *Registry) {
	if r == nil || other == nil {
		return
	}
	for _, id := range other.ids {
		r.add(other.byID[id])
	}
}
