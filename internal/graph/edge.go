// Package graph defines the wire-level edge type shared by every stage of
// the triangle estimation pipeline, from the host-side router through the
// per-accelerator sampler, sorter and counter.
package graph

import "fmt"

// NodeID is a graph vertex identifier.
type NodeID uint32

// Edge is an undirected edge in canonical form: U < V always holds for any
// Edge constructed via New. Self-loops are rejected by the input layer
// before an Edge value is ever created.
type Edge struct {
	U NodeID
	V NodeID
}

// New builds an Edge in canonical form, swapping endpoints if necessary.
// It reports an error for self-loops, which the input contract forbids.
func New(a, b NodeID) (Edge, error) {
	if a == b {
		return Edge{}, fmt.Errorf("graph: self-loop rejected for node %d", a)
	}
	if a < b {
		return Edge{U: a, V: b}, nil
	}
	return Edge{U: b, V: a}, nil
}

// Less reports whether e sorts strictly before o in lexicographic (U, V)
// order, the ordering invariant maintained by the tiered sorter.
func (e Edge) Less(o Edge) bool {
	if e.U != o.U {
		return e.U < o.U
	}
	return e.V < o.V
}

// Canonical reports whether the edge already satisfies U < V.
func (e Edge) Canonical() bool {
	return e.U < e.V
}

// EnforceCanonical swaps U and V in place if the ordering invariant was
// disturbed (e.g. by node-id remapping), restoring U < V.
func (e *Edge) EnforceCanonical() {
	if e.U > e.V {
		e.U, e.V = e.V, e.U
	}
}
