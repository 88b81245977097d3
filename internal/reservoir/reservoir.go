// Package reservoir implements the per-accelerator bounded reservoir
// sampler (component C5): a fixed-capacity uniform random sample fed by
// batches of edges arriving from the router, with an optional secondary
// "update region" used to stage edges written since the last Reset
// (spec.md §4.5).
package reservoir

import (
	"math/rand"
	"sync"

	"github.com/trifab/trifab/internal/graph"
	"github.com/trifab/trifab/pkg/parallel"
)

// Reservoir holds one accelerator's bounded edge sample. All exported
// methods are safe for concurrent use; Ingest internally fans work out
// across worker goroutines modeling the accelerator's tasklets.
type Reservoir struct {
	mu            sync.Mutex
	m             int // reservoir capacity
	u             int // update-region capacity; 0 disables it
	sample        []graph.Edge
	update        []graph.Edge
	edgesInSample int
	edgesInUpdate int
	totalEdges    int64
	totalUpdate   int64
	replayTotal   int64 // total_edges replayed across one batch's replace phase
	rng           *rand.Rand
	nrTasklets    int
}

// New builds a Reservoir of capacity m, with an optional update region of
// capacity u (0 disables it), driven by nrTasklets worker goroutines per
// Ingest call.
func New(m, u, nrTasklets int, seed int64) *Reservoir {
	if nrTasklets < 1 {
		nrTasklets = 1
	}
	r := &Reservoir{
		m:          m,
		u:          u,
		sample:     make([]graph.Edge, m),
		rng:        rand.New(rand.NewSource(seed)),
		nrTasklets: nrTasklets,
	}
	if u > 0 {
		r.update = make([]graph.Edge, u)
	}
	return r
}

// Ingest runs the §4.5 protocol over one arriving batch: tasklets race to
// fill free reservoir slots via a mutex-protected counter, then — after a
// one-time barrier separating "still filling" from "replacing" — apply
// reservoir-replace to whatever didn't fit.
func (r *Reservoir) Ingest(edges []graph.Edge) error {
	n := len(edges)
	if n == 0 {
		return nil
	}

	workers := r.nrTasklets
	if workers > n {
		workers = n
	}
	chunkSize := (n + workers - 1) / workers

	pendingPerWorker := make([][]graph.Edge, workers)
	barrier := parallel.NewBarrier(workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(widx, start, end int) {
			defer wg.Done()
			if start < end {
				pendingPerWorker[widx] = r.fillPhase(edges[start:end])
			}
			barrier.Wait()
		}(w, start, end)
	}
	wg.Wait()

	// Edges that found the sample full were the last ones counted into
	// total_edges, so replaying the count from just below that range gives
	// each of them the total_edges value it was counted at.
	var nPending int64
	for _, pend := range pendingPerWorker {
		nPending += int64(len(pend))
	}
	r.mu.Lock()
	r.replayTotal = r.totalEdges - nPending
	r.mu.Unlock()

	var wg2 sync.WaitGroup
	for w := 0; w < workers; w++ {
		pend := pendingPerWorker[w]
		if len(pend) == 0 {
			continue
		}
		wg2.Add(1)
		go func(pend []graph.Edge) {
			defer wg2.Done()
			for _, e := range pend {
				r.replacePhase(e)
			}
		}(pend)
	}
	wg2.Wait()

	if r.update != nil {
		for _, e := range edges {
			r.ingestUpdateRegion(e)
		}
	}
	return nil
}

// fillPhase claims contiguous sample slots for as many of edges as fit,
// returning whatever didn't fit for the replace phase.
func (r *Reservoir) fillPhase(edges []graph.Edge) []graph.Edge {
	var pending []graph.Edge
	for _, e := range edges {
		idx, ok := r.claimFillSlot()
		if ok {
			r.sample[idx] = e
		} else {
			pending = append(pending, e)
		}
	}
	return pending
}

func (r *Reservoir) claimFillSlot() (idx int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalEdges++
	if r.edgesInSample < r.m {
		idx = r.edgesInSample
		r.edgesInSample++
		return idx, true
	}
	return 0, false
}

// replacePhase applies the reservoir-replace rule: draw u in [0,1), replace
// at a uniformly random index if u < M/total_edges, where total_edges is the
// count including e itself (the canonical "increment then threshold" rule):
// each call takes the next value of the replayed count set up by Ingest.
func (r *Reservoir) replacePhase(e graph.Edge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replayTotal++
	threshold := float64(r.m) / float64(r.replayTotal)
	if r.rng.Float64() < threshold {
		idx := r.rng.Intn(r.m)
		r.sample[idx] = e
	}
}

// ingestUpdateRegion mirrors the same fill-then-replace algorithm into the
// smaller update-region buffer, with its own independent counters.
func (r *Reservoir) ingestUpdateRegion(e graph.Edge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalUpdate++
	if r.edgesInUpdate < r.u {
		r.update[r.edgesInUpdate] = e
		r.edgesInUpdate++
		return
	}
	threshold := float64(r.u) / float64(r.totalUpdate)
	if r.rng.Float64() < threshold {
		idx := r.rng.Intn(r.u)
		r.update[idx] = e
	}
}

// UpdateRegion returns a snapshot copy of the update region's current
// contents (length min(total_update, U)). Per spec.md §4.10 the estimator's
// scaling factor is defined over the main reservoir only (M, total_edges);
// the update region never feeds the numeric estimate. Its occupancy is
// reported by Stats below, which the orchestrator's per-update debug logging
// reads, so a nonzero --update-region is observable rather than a silent,
// unread write sink.
func (r *Reservoir) UpdateRegion() []graph.Edge {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]graph.Edge, r.edgesInUpdate)
	copy(out, r.update[:r.edgesInUpdate])
	return out
}

// Sample returns a snapshot copy of the current sample (length
// min(total_edges, M)).
func (r *Reservoir) Sample() []graph.Edge {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]graph.Edge, r.edgesInSample)
	copy(out, r.sample[:r.edgesInSample])
	return out
}

// Stats is a snapshot of the reservoir's counters, used by the estimator's
// scaling factor (§4.10) and by invariant tests (§8). UpdateCapacity,
// EdgesInUpdate and TotalUpdate are zero when --update-region is disabled.
type Stats struct {
	Capacity       int
	EdgesInSample  int
	TotalEdges     int64
	UpdateCapacity int
	EdgesInUpdate  int
	TotalUpdate    int64
}

// Stats returns the current counters.
func (r *Reservoir) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Capacity:       r.m,
		EdgesInSample:  r.edgesInSample,
		TotalEdges:     r.totalEdges,
		UpdateCapacity: r.u,
		EdgesInUpdate:  r.edgesInUpdate,
		TotalUpdate:    r.totalUpdate,
	}
}

// Reset wipes per-update counters. Per the resolved open question in §9,
// this happens only on an explicit Reset broadcast, never implicitly at a
// phase transition.
func (r *Reservoir) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edgesInSample = 0
	r.totalEdges = 0
	r.edgesInUpdate = 0
	r.totalUpdate = 0
}

// ReplaceSample overwrites the live sample wholesale, used by the
// remapper/sorter pipeline to write back a transformed or sorted copy
// without touching the reservoir's counters.
func (r *Reservoir) ReplaceSample(edges []graph.Edge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy(r.sample, edges)
}
