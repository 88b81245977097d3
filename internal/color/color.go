// Package color implements the universal-hash edge colorer (component C1).
//
// The same Params value and the same Of function must run unmodified on the
// host (for routing) and be reproducible on every accelerator (for any
// residual checks); any divergence between the two collapses the whole
// color-partitioned counting scheme, so this package intentionally exposes
// nothing but a pure function over an immutable Params value.
package color

import "github.com/trifab/trifab/internal/graph"

// Prime is the modulus used by the universal hash family, fixed by the
// specification at 8191.
const Prime = 8191

// Color is a value in [0, C).
type Color uint32

// Params parameterizes the universal hash: color(id) = ((A*id+B) mod P) mod C.
type Params struct {
	A uint64 // session-random, in [1, Prime-1]
	B uint64 // session-random, in [0, Prime-1]
	C uint32 // number of colors, C >= 1
}

// Of computes the color of a node id. It is the single function both host
// and accelerator call; keep it branch-free and allocation-free.
func Of(p Params, id graph.NodeID) Color {
	h := (p.A*uint64(id) + p.B) % Prime
	return Color(h % uint64(p.C))
}

// EdgeColors returns the ordered color pair (min, max) of an edge's two
// endpoints, the (c_u <= c_v) pair the triplet dispatcher consumes.
func EdgeColors(p Params, e graph.Edge) (lo, hi Color) {
	cu, cv := Of(p, e.U), Of(p, e.V)
	if cu <= cv {
		return cu, cv
	}
	return cv, cu
}
