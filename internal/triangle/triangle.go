// Package triangle implements the triangle counter (component C9): for
// each sampled edge, a two-pointer merge of the two endpoints' ordered
// adjacency runs counts common neighbors, i.e. triangles.
package triangle

import (
	"sync/atomic"

	"github.com/trifab/trifab/internal/graph"
	"github.com/trifab/trifab/internal/locator"
)

// defaultChunk is the work unit handed out per steal from the shared
// cursor, modeling §4.9's "workers share the sample by mutex-arbitrated
// ranges".
const defaultChunk = 256

// Count returns the raw per-accelerator triangle count ŵ over a sorted
// sample with its node-location index, using nrWorkers goroutines that
// steal contiguous ranges off a shared atomic cursor.
func Count(sample []graph.Edge, locations []locator.NodeLocation, nrWorkers int) int64 {
	n := len(sample)
	if n == 0 {
		return 0
	}
	workers := nrWorkers
	if workers < 1 {
		workers = 1
	}

	chunk := defaultChunk
	if chunk > n {
		chunk = n
	}

	var cursor atomic.Int64
	var total atomic.Int64

	done := make(chan struct{}, workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for {
				start := int(cursor.Add(int64(chunk))) - chunk
				if start >= n {
					return
				}
				end := start + chunk
				if end > n {
					end = n
				}
				total.Add(countRange(sample, locations, start, end))
			}
		}()
	}
	for w := 0; w < workers; w++ {
		<-done
	}

	return total.Load()
}

// countRange counts triangles contributed by edges in [lo, hi).
func countRange(sample []graph.Edge, locations []locator.NodeLocation, lo, hi int) int64 {
	n := len(sample)
	var count int64
	for i := lo; i < hi; i++ {
		e := sample[i]
		vLoc := locator.Locate(locations, e.V)
		if vLoc < 0 {
			continue
		}
		p1 := i + 1
		p2 := int(vLoc)
		for p1 < n && sample[p1].U == e.U && p2 < n && sample[p2].U == e.V {
			n1, n2 := sample[p1].V, sample[p2].V
			switch {
			case n1 == n2:
				count++
				p1++
				p2++
			case n1 < n2:
				p1++
			default:
				p2++
			}
		}
	}
	return count
}
