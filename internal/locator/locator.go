// Package locator implements the node-location index (component C8): a
// single pass over the sorted sample that records, for each distinct first
// node, the offset of its first edge, supporting binary search during
// triangle counting.
package locator

import (
	"sync"

	"github.com/trifab/trifab/internal/graph"
	"github.com/trifab/trifab/pkg/parallel"
)

// NodeLocation records where a node's adjacency run begins in the sorted
// sample.
type NodeLocation struct {
	ID            graph.NodeID
	IndexInSample int32
}

// Build scans sample (assumed lexicographically sorted) using nrWorkers
// goroutines splitting the sample by contiguous range, and returns the
// locations array sorted by id. Ordered assembly of the variable-length
// per-worker results uses a handshake chain (§4.8): worker i waits for
// worker i-1 to publish its final write offset before writing its own
// contribution.
func Build(sample []graph.Edge, nrWorkers int) []NodeLocation {
	n := len(sample)
	if n == 0 {
		return nil
	}
	workers := nrWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	chunkSize := (n + workers - 1) / workers
	ranges := make([][2]int, workers)
	for w := 0; w < workers; w++ {
		lo := w * chunkSize
		hi := lo + chunkSize
		if hi > n {
			hi = n
		}
		ranges[w] = [2]int{lo, hi}
	}

	localLists := make([][]NodeLocation, workers)
	var wg1 sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg1.Add(1)
		go func(w int) {
			defer wg1.Done()
			localLists[w] = scanRange(sample, ranges[w])
		}(w)
	}
	wg1.Wait()

	total := 0
	for _, l := range localLists {
		total += len(l)
	}
	output := make([]NodeLocation, total)

	offsets := make([]int, workers)
	chain := parallel.NewHandshakeChain(workers)
	var wg2 sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg2.Add(1)
		go func(w int) {
			defer wg2.Done()
			chain.WaitFor(w)
			start := 0
			if w > 0 {
				start = offsets[w-1]
			}
			copy(output[start:], localLists[w])
			offsets[w] = start + len(localLists[w])
			chain.Publish(w)
		}(w)
	}
	wg2.Wait()

	return output
}

// scanRange emits one NodeLocation per distinct u value first seen at or
// after rng[0], skipping a leading run that belongs to whatever node's
// adjacency started before rng[0] (so two workers never both emit a
// location for the same node).
func scanRange(sample []graph.Edge, rng [2]int) []NodeLocation {
	lo, hi := rng[0], rng[1]
	if lo >= hi {
		return nil
	}

	skipRun := lo > 0 && sample[lo].U == sample[lo-1].U

	var out []NodeLocation
	var lastSeen graph.NodeID
	seenAny := false
	for i := lo; i < hi; i++ {
		u := sample[i].U
		if skipRun {
			if u == sample[lo].U {
				continue
			}
			skipRun = false
		}
		if !seenAny || u != lastSeen {
			out = append(out, NodeLocation{ID: u, IndexInSample: int32(i)})
			lastSeen = u
			seenAny = true
		}
	}
	return out
}

// Locate binary-searches locations (sorted by ID) for id, returning its
// starting sample offset or -1 if absent.
func Locate(locations []NodeLocation, id graph.NodeID) int32 {
	lo, hi := 0, len(locations)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case locations[mid].ID == id:
			return locations[mid].IndexInSample
		case locations[mid].ID < id:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return -1
}
