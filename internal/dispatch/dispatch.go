// Package dispatch implements the triplet dispatcher (component C2): given
// an edge's two node colors it produces, in closed form (no per-edge
// enumeration of the triplet space), the set of accelerator ids whose
// color-triplet covers that edge.
//
// Triplets (c1, c2, c3), 0 <= c1 <= c2 <= c3 < C, are enumerated in
// lexicographic order and the i-th triplet in that order is accelerator i.
// Rather than transcribe the spec's dense closed-form polynomials directly,
// this package derives the same id assignment from two elementary prefix
// sums (a triplet's id is the count of triplets that lexicographically
// precede it) which is equivalent but easier to verify: both the count of
// triplets whose first coordinate is below c1, and the count of triplets
// sharing c1 whose second coordinate is below c2, have closed forms built
// from the standard sum-of-integers and sum-of-squares identities.
package dispatch

import "github.com/trifab/trifab/internal/color"

// AcceleratorID identifies one accelerator by its position in the
// lexicographic triplet enumeration.
type AcceleratorID int64

// TotalTriplets returns binom(C+2, 3), the number of distinct color
// triplets and therefore the minimum number of accelerators required.
func TotalTriplets(c uint32) int64 {
	n := int64(c)
	return (n + 2) * (n + 1) * n / 6
}

// Dispatcher derives target accelerator ids for a fixed color count C.
type Dispatcher struct {
	c int64
}

// New builds a Dispatcher for C colors. C must be >= 1.
func New(c uint32) Dispatcher {
	return Dispatcher{c: int64(c)}
}

// sum1 returns 0+1+...+m, the closed form m(m+1)/2. Negative m yields 0,
// which keeps the prefix-sum formulas below branch-free at the boundaries.
func sum1(m int64) int64 {
	if m < 0 {
		return 0
	}
	return m * (m + 1) / 2
}

// sum2 returns 0^2+1^2+...+m^2, the closed form m(m+1)(2m+1)/6.
func sum2(m int64) int64 {
	if m < 0 {
		return 0
	}
	return m * (m + 1) * (2*m + 1) / 6
}

// firstCoordOffset returns the number of triplets whose first coordinate is
// strictly less than c1: the sum over k in [0, c1) of f(k), the count of
// triplets with first coordinate exactly k, where f(k) = (C-k)(C-k+1)/2 is
// the number of ways to choose (c2, c3) with k <= c2 <= c3 < C. Expressed as
// a sum over n = C-k running from C-c1+1 to C, this becomes a difference of
// sum1/sum2 evaluated at the endpoints.
func (d Dispatcher) firstCoordOffset(c1 int64) int64 {
	if c1 <= 0 {
		return 0
	}
	hi := d.c
	lo := d.c - c1 + 1
	sumN := sum1(hi) - sum1(lo-1)
	sumN2 := sum2(hi) - sum2(lo-1)
	return (sumN2 + sumN) / 2
}

// secondCoordOffset returns, within the block of triplets sharing first
// coordinate c1, the number of triplets whose second coordinate is
// strictly less than c2: the sum over j in [c1, c2) of (C-j).
func (d Dispatcher) secondCoordOffset(c1, c2 int64) int64 {
	if c2 <= c1 {
		return 0
	}
	count := c2 - c1
	return count*d.c - (sum1(c2-1) - sum1(c1-1))
}

// id returns the lexicographic rank of triplet (c1, c2, c3).
func (d Dispatcher) id(c1, c2, c3 int64) AcceleratorID {
	return AcceleratorID(d.firstCoordOffset(c1) + d.secondCoordOffset(c1, c2) + (c3 - c2))
}

// Triplet is one color triplet (c1 <= c2 <= c3), identified by its
// lexicographic rank (its AcceleratorID).
type Triplet struct {
	C1, C2, C3 color.Color
}

// Monochromatic reports whether all three colors in the triplet are equal,
// the case the estimator's (2-C) correction exists to cancel (§4.10).
func (t Triplet) Monochromatic() bool {
	return t.C1 == t.C2 && t.C2 == t.C3
}

// Triplets enumerates every color triplet in the same lexicographic order
// Dispatch's closed-form ids assume, so Triplets()[id] is the triplet
// accelerator id owns.
func (d Dispatcher) Triplets() []Triplet {
	out := make([]Triplet, 0, TotalTriplets(uint32(d.c)))
	for c1 := int64(0); c1 < d.c; c1++ {
		for c2 := c1; c2 < d.c; c2++ {
			for c3 := c2; c3 < d.c; c3++ {
				out = append(out, Triplet{C1: color.Color(c1), C2: color.Color(c2), C3: color.Color(c3)})
			}
		}
	}
	return out
}

// Dispatch returns the accelerator ids covering an edge whose ordered node
// colors are (lo, hi), lo <= hi. Three disjoint families of triplets cover
// {lo, hi}: triplets (lo, hi, x) for x in [hi, C), triplets (lo, y, hi) for
// y in [lo, hi), and triplets (z, lo, hi) for z in [0, lo). When lo == hi
// the middle family's range is empty by construction, so no triplet is ever
// counted twice.
func (d Dispatcher) Dispatch(lo, hi color.Color) []AcceleratorID {
	a, b := int64(lo), int64(hi)
	ids := make([]AcceleratorID, 0, (d.c-b)+(b-a)+a)

	for c3 := b; c3 < d.c; c3++ {
		ids = append(ids, d.id(a, b, c3))
	}
	for c2 := a; c2 < b; c2++ {
		ids = append(ids, d.id(a, c2, b))
	}
	for c1 := int64(0); c1 < a; c1++ {
		ids = append(ids, d.id(c1, a, b))
	}
	return ids
}
