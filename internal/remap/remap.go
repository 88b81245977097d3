// Package remap implements the heavy-hitter node-id remapper (component
// C6): before the sort phase, the top-t heavy-hitter node ids are rewritten
// to sentinel-high values so their adjacency runs land contiguously at the
// tail of the sorted sample (§4.6).
package remap

import (
	"github.com/trifab/trifab/internal/graph"
	"github.com/trifab/trifab/internal/heavyhitter"
)

// Mapping is a frozen remap/reverse-remap table built from one top-t list
// and a max node id. It is reused for every edge in the sample.
type Mapping struct {
	forward map[graph.NodeID]graph.NodeID
	reverse map[graph.NodeID]graph.NodeID
}

// Build assigns original node ids from topList (ordered by descending rank,
// rank 0 first) sentinel ids max_id+t, max_id+t-1, ..., max_id+1.
func Build(topList []heavyhitter.Entry, maxID graph.NodeID) Mapping {
	t := int64(len(topList))
	forward := make(map[graph.NodeID]graph.NodeID, len(topList))
	reverse := make(map[graph.NodeID]graph.NodeID, len(topList))
	for k, entry := range topList {
		newID := graph.NodeID(int64(maxID) + t - int64(k))
		forward[entry.ID] = newID
		reverse[newID] = entry.ID
	}
	return Mapping{forward: forward, reverse: reverse}
}

// Empty reports whether this mapping has no entries (heavy-hitters
// disabled, or no candidates yet observed).
func (m Mapping) Empty() bool {
	return len(m.forward) == 0
}

// Apply rewrites every edge in sample whose endpoint matches a top-t id,
// re-enforcing the u < v canonical invariant afterward.
func (m Mapping) Apply(sample []graph.Edge) {
	if m.Empty() {
		return
	}
	for i := range sample {
		e := &sample[i]
		if nu, ok := m.forward[e.U]; ok {
			e.U = nu
		}
		if nv, ok := m.forward[e.V]; ok {
			e.V = nv
		}
		e.EnforceCanonical()
	}
}

// Reverse undoes Apply over the same table, restoring original node ids.
func (m Mapping) Reverse(sample []graph.Edge) {
	if m.Empty() {
		return
	}
	for i := range sample {
		e := &sample[i]
		if ou, ok := m.reverse[e.U]; ok {
			e.U = ou
		}
		if ov, ok := m.reverse[e.V]; ok {
			e.V = ov
		}
		e.EnforceCanonical()
	}
}
