// Package accelerator bundles the per-accelerator pipeline (components
// C5-C9) into a single actor: one Accelerator owns exactly one reservoir
// sample and runs the remap/sort/locate/count sequence over it whenever the
// orchestrator broadcasts a Count phase, mirroring the single accelerator
// program the specification describes as running the same code on every
// DPU in the fabric (§5, §6's ABI).
package accelerator

import (
	"context"
	"fmt"

	"github.com/trifab/trifab/internal/dispatch"
	"github.com/trifab/trifab/internal/estimate"
	"github.com/trifab/trifab/internal/graph"
	"github.com/trifab/trifab/internal/heavyhitter"
	"github.com/trifab/trifab/internal/locator"
	"github.com/trifab/trifab/internal/remap"
	"github.com/trifab/trifab/internal/reservoir"
	"github.com/trifab/trifab/internal/sorter"
	"github.com/trifab/trifab/internal/triangle"
	"github.com/trifab/trifab/pkg/apperr"
	"github.com/trifab/trifab/pkg/parallel"
)

// Config parameterizes one accelerator, broadcast identically to every
// accelerator in the fabric except for ID and Triplet (§6: DPU_INPUT_ARGUMENTS).
type Config struct {
	ID           dispatch.AcceleratorID
	Triplet      dispatch.Triplet
	SampleSize   int // M, reservoir capacity
	UpdateRegion int // U, optional secondary reservoir region; 0 disables it
	NRTasklets   int // workers cooperating inside one accelerator
	Seed         int64
}

// Accelerator is one unit of the fabric: a reservoir sample plus the
// transient sort/locate/count state rebuilt every Count phase.
type Accelerator struct {
	cfg       Config
	reservoir *reservoir.Reservoir

	topList   []heavyhitter.Entry
	mapping   remap.Mapping
	maxNodeID graph.NodeID

	sorted    []graph.Edge
	locations []locator.NodeLocation

	triangleEstimation int64
}

// New builds an Accelerator from cfg.
func New(cfg Config) *Accelerator {
	if cfg.NRTasklets < 1 {
		cfg.NRTasklets = 1
	}
	return &Accelerator{
		cfg:       cfg,
		reservoir: reservoir.New(cfg.SampleSize, cfg.UpdateRegion, cfg.NRTasklets, cfg.Seed),
	}
}

// ID returns the accelerator's fabric-wide identifier.
func (a *Accelerator) ID() dispatch.AcceleratorID { return a.cfg.ID }

// Ingest implements router.Sink: the host flushes a batch of edges destined
// for this accelerator directly into its reservoir (§4.5's protocol 1-2).
func (a *Accelerator) Ingest(edges []graph.Edge) error {
	return a.reservoir.Ingest(edges)
}

// SetHeavyHitters installs the top-t candidate list and the current global
// max node id ahead of the next Count phase (§4.11: "publish top-t to
// accelerators"). An empty topList disables remapping for this update.
func (a *Accelerator) SetHeavyHitters(topList []heavyhitter.Entry, maxNodeID graph.NodeID) {
	a.topList = topList
	a.maxNodeID = maxNodeID
}

// ReverseRemap undoes the previous Count phase's remap over the live
// reservoir sample, restoring original node ids before the next batch of
// edges is ingested (§4.11: REVERSE_REMAP runs before SAMPLE(i) for i>0).
// It is a no-op if no remap was ever applied.
func (a *Accelerator) ReverseRemap() {
	if a.mapping.Empty() {
		return
	}
	sample := a.reservoir.Sample()
	a.mapping.Reverse(sample)
	a.reservoir.ReplaceSample(sample)
	a.mapping = remap.Mapping{}
}

// Reset wipes this accelerator's per-update reservoir counters, run only in
// response to an explicit Reset broadcast (§9's resolved open question).
func (a *Accelerator) Reset() {
	a.reservoir.Reset()
}

// Count runs the full C6-C9 sequence over the current reservoir sample:
// remap heavy-hitter ids to sentinel highs, sort, build the node-location
// index, then count triangles by ordered-neighbor intersection. The result
// is cached and available from Report.
func (a *Accelerator) Count(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	sample := a.reservoir.Sample()
	if len(sample) == 0 {
		a.sorted = nil
		a.locations = nil
		a.triangleEstimation = 0
		return nil
	}

	a.mapping = remap.Build(a.topList, a.maxNodeID)
	a.mapping.Apply(sample)

	sortMaxID := a.maxNodeID
	t := int64(len(a.topList))
	if t > 0 {
		sortMaxID = graph.NodeID(int64(a.maxNodeID) + t)
	}

	sorted, err := sorter.Sort(sample, sorter.Config{
		NRSplits:  a.cfg.NRTasklets * 4,
		NRWorkers: a.cfg.NRTasklets,
		MaxNodeID: sortMaxID,
		Seed:      a.cfg.Seed,
	})
	if err != nil {
		return apperr.Wrap(apperr.CodeInvariant, fmt.Sprintf("accelerator %d: sort failed", a.cfg.ID), err)
	}

	a.sorted = sorted
	a.locations = locator.Build(sorted, a.cfg.NRTasklets)
	a.triangleEstimation = triangle.Count(sorted, a.locations, a.cfg.NRTasklets)

	// Persist the remapped, sorted order back into the reservoir so the
	// next phase's ReverseRemap (and any subsequent Count without an
	// intervening sample update) operates on consistent state.
	a.reservoir.ReplaceSample(sorted)
	return nil
}

// Report returns this accelerator's contribution to the final estimate
// (§4.10), built from its cached raw count and reservoir stats.
func (a *Accelerator) Report() estimate.AcceleratorReport {
	stats := a.reservoir.Stats()
	return estimate.AcceleratorReport{
		ID:         a.cfg.ID,
		RawCount:   a.triangleEstimation,
		M:          stats.Capacity,
		TotalEdges: stats.TotalEdges,
	}
}

// UpdateRegionStats returns this accelerator's update-region occupancy.
// The update region never feeds the §4.10 estimate (see reservoir.Stats),
// so this is consumed only for diagnostics — the orchestrator logs it per
// update when --update-region is enabled.
func (a *Accelerator) UpdateRegionStats() reservoir.Stats {
	return a.reservoir.Stats()
}

// Set is the fabric of accelerators addressed by id, implementing
// router.Sink by dispatching each flushed batch to the accelerator it
// targets (§5: "transfers write into disjoint, per-accelerator regions").
type Set struct {
	byID map[dispatch.AcceleratorID]*Accelerator
	all  []*Accelerator
}

// NewSet builds a Set from one Accelerator per triplet, indexed by id.
func NewSet(accs []*Accelerator) *Set {
	s := &Set{byID: make(map[dispatch.AcceleratorID]*Accelerator, len(accs)), all: accs}
	for _, a := range accs {
		s.byID[a.ID()] = a
	}
	return s
}

// All returns every accelerator in the set, in id order.
func (s *Set) All() []*Accelerator { return s.all }

// Get returns the accelerator owning id, or nil if out of range.
func (s *Set) Get(id dispatch.AcceleratorID) *Accelerator { return s.byID[id] }

// Ingest implements router.Sink.
func (s *Set) Ingest(id dispatch.AcceleratorID, edges []graph.Edge) error {
	acc := s.byID[id]
	if acc == nil {
		return apperr.Invariant("accelerator: no accelerator for id %d", id)
	}
	return acc.Ingest(edges)
}

// BroadcastReverseRemap runs ReverseRemap on every accelerator in parallel.
func (s *Set) BroadcastReverseRemap(ctx context.Context) error {
	_, err := parallel.ForEach(ctx, s.all, parallel.DefaultPoolConfig(), func(_ context.Context, a *Accelerator) error {
		a.ReverseRemap()
		return nil
	})
	return err
}

// BroadcastReset runs Reset on every accelerator in parallel.
func (s *Set) BroadcastReset(ctx context.Context) error {
	_, err := parallel.ForEach(ctx, s.all, parallel.DefaultPoolConfig(), func(_ context.Context, a *Accelerator) error {
		a.Reset()
		return nil
	})
	return err
}

// BroadcastHeavyHitters publishes the same top-t list and max node id to
// every accelerator ahead of the next Count phase.
func (s *Set) BroadcastHeavyHitters(topList []heavyhitter.Entry, maxNodeID graph.NodeID) {
	for _, a := range s.all {
		a.SetHeavyHitters(topList, maxNodeID)
	}
}

// BroadcastCount runs Count on every accelerator in parallel and returns
// the first error encountered, if any.
func (s *Set) BroadcastCount(ctx context.Context) error {
	_, err := parallel.ForEach(ctx, s.all, parallel.DefaultPoolConfig(), func(ctx context.Context, a *Accelerator) error {
		return a.Count(ctx)
	})
	return err
}

// CollectReports gathers every accelerator's Report.
func (s *Set) CollectReports() []estimate.AcceleratorReport {
	out := make([]estimate.AcceleratorReport, len(s.all))
	for i, a := range s.all {
		out[i] = a.Report()
	}
	return out
}

// UpdateRegionOccupancy sums edges_in_update and total_update across the
// fabric, for the orchestrator's per-update diagnostics.
func (s *Set) UpdateRegionOccupancy() (edgesInUpdate int, totalUpdate int64) {
	for _, a := range s.all {
		st := a.UpdateRegionStats()
		edgesInUpdate += st.EdgesInUpdate
		totalUpdate += st.TotalUpdate
	}
	return edgesInUpdate, totalUpdate
}
