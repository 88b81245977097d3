// Package orchestrator implements the top-level state machine (component
// C11): it allocates the accelerator fabric, broadcasts parameters, and
// drives each update through reverse-remap, ingest, heavy-hitter
// publication, count and collection, exactly as spec.md §4.11 describes.
package orchestrator

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/trifab/trifab/internal/accelerator"
	"github.com/trifab/trifab/internal/color"
	"github.com/trifab/trifab/internal/dispatch"
	"github.com/trifab/trifab/internal/edgeio"
	"github.com/trifab/trifab/internal/estimate"
	"github.com/trifab/trifab/internal/graph"
	"github.com/trifab/trifab/internal/heavyhitter"
	"github.com/trifab/trifab/internal/history"
	"github.com/trifab/trifab/internal/router"
	"github.com/trifab/trifab/internal/telemetry"
	"github.com/trifab/trifab/pkg/apperr"
	"github.com/trifab/trifab/pkg/clock"
	"github.com/trifab/trifab/pkg/logging"
	"github.com/trifab/trifab/pkg/runconfig"
)

// Phase is the tagged variant replacing the original's dynamic "execution
// code" integer (spec.md §9's design note): every broadcast between the
// orchestrator and the accelerator fabric carries one of these.
type Phase int

const (
	PhaseSetup Phase = iota
	PhaseReverseRemap
	PhaseReset
	PhaseIngest
	PhaseCount
)

// String names a Phase for log lines.
func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhaseReverseRemap:
		return "reverse_remap"
	case PhaseReset:
		return "reset"
	case PhaseIngest:
		return "ingest"
	case PhaseCount:
		return "count"
	default:
		return "unknown"
	}
}

// ExecutionConfig is the control word broadcast to every accelerator ahead
// of a phase, mirroring the ABI struct named in spec.md §6.
type ExecutionConfig struct {
	Phase     Phase
	UpdateID  int
	MaxNodeID graph.NodeID
}

// Config wires the orchestrator's collaborators: the estimator parameters,
// and the external collaborators spec.md §1 calls out as out of scope for
// the core (logging, clock, tracing, history) so tests can substitute
// fakes for all of them.
type Config struct {
	Estimator runconfig.EstimatorConfig
	Logger    logging.Logger
	Clock     clock.Clock
	Tracer    telemetry.Tracer
	History   *history.Store
}

// Orchestrator drives the C11 state machine across one or more updates.
type Orchestrator struct {
	cfg         Config
	colorParams color.Params
	dispatcher  dispatch.Dispatcher
	triplets    []dispatch.Triplet
	accelerators *accelerator.Set

	maxNodeID graph.NodeID
	edgesSeen int64
	edgesKept int64
	topList   []heavyhitter.Entry
}

// New runs the ALLOCATE/LOAD_KERNEL/BROADCAST_PARAMS phases: it derives the
// session's color parameters from the seed, builds the triplet dispatcher,
// and allocates one Accelerator per color triplet (spec.md §3: "the number
// of allocated accelerators must be >= number of triplets" — this software
// fabric allocates exactly that many).
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.Estimator.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NullLogger{}
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = telemetry.Disabled()
	}

	rng := rand.New(rand.NewSource(cfg.Estimator.Seed))
	colorParams := color.Params{
		A: 1 + uint64(rng.Int63n(color.Prime-1)),
		B: uint64(rng.Int63n(color.Prime)),
		C: cfg.Estimator.Colors,
	}
	dispatcher := dispatch.New(cfg.Estimator.Colors)
	triplets := dispatcher.Triplets()

	accs := make([]*accelerator.Accelerator, len(triplets))
	for i, tr := range triplets {
		accs[i] = accelerator.New(accelerator.Config{
			ID:           dispatch.AcceleratorID(i),
			Triplet:      tr,
			SampleSize:   cfg.Estimator.SampleSize,
			UpdateRegion: cfg.Estimator.UpdateRegion,
			NRTasklets:   cfg.Estimator.NRTasklets,
			Seed:         cfg.Estimator.Seed + int64(i),
		})
	}

	cfg.Logger.Info("allocated %d accelerators for %d colors (triplets=%d)",
		len(accs), cfg.Estimator.Colors, len(triplets))

	return &Orchestrator{
		cfg:          cfg,
		colorParams:  colorParams,
		dispatcher:   dispatcher,
		triplets:     triplets,
		accelerators: accelerator.NewSet(accs),
	}, nil
}

// Reset runs the operator-initiated RESET broadcast (spec.md §3, §9):
// reservoirs and heavy-hitter state persist across updates by default and
// are wiped only by this explicit call, never implicitly at a phase
// transition.
func (o *Orchestrator) Reset(ctx context.Context) error {
	o.cfg.Logger.Info("broadcasting %s", PhaseReset)
	o.maxNodeID = 0
	o.edgesSeen = 0
	o.edgesKept = 0
	o.topList = nil
	return o.accelerators.BroadcastReset(ctx)
}

// RunUpdate drives one full update cycle (SAMPLE -> [heavy-hitters] ->
// COUNT -> COLLECT) over sources and returns the reported triangle
// estimate. updateIndex is the 0-based update number; heavy-hitter
// observation only runs on updateIndex == 0, per spec.md §4.4 item 4.
func (o *Orchestrator) RunUpdate(ctx context.Context, updateIndex int, updateFile string, sources []edgeio.Source) (int64, error) {
	start := o.cfg.Clock.Now()
	ctx, span := o.cfg.Tracer.Start(ctx, "orchestrator.update")
	defer span.End()

	hhEnabled := o.cfg.Estimator.MisraGriesK > 0

	if updateIndex > 0 && hhEnabled {
		o.cfg.Logger.Info("broadcasting %s (update %d)", PhaseReverseRemap, updateIndex)
		rCtx, rSpan := o.cfg.Tracer.Start(ctx, "orchestrator.reverse_remap")
		err := o.accelerators.BroadcastReverseRemap(rCtx)
		rSpan.End()
		if err != nil {
			return 0, err
		}
	}

	o.cfg.Logger.Info("broadcasting %s (update %d)", PhaseIngest, updateIndex)
	iCtx, iSpan := o.cfg.Tracer.Start(ctx, "orchestrator.ingest")
	rt := router.New(router.Config{
		NRThreads:     o.cfg.Estimator.NRThreads,
		P:             o.cfg.Estimator.P,
		BatchCapacity: o.cfg.Estimator.BatchCapacity,
		HeavyHitterK:  o.cfg.Estimator.MisraGriesK,
		Seed:          o.cfg.Estimator.Seed,
		Color:         o.colorParams,
		Dispatcher:    o.dispatcher,
		Logger:        o.cfg.Logger,
	})
	observeHH := hhEnabled && updateIndex == 0
	result, err := rt.Route(iCtx, sources, o.accelerators, observeHH)
	iSpan.End()
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeIO, fmt.Sprintf("orchestrator: update %d ingest failed", updateIndex), err)
	}

	if result.MaxNodeID > o.maxNodeID {
		o.maxNodeID = result.MaxNodeID
	}
	o.edgesSeen += result.EdgesSeen
	o.edgesKept += result.EdgesKept

	if hhEnabled {
		if observeHH {
			tables := make([]*heavyhitter.Table, len(result.Threads))
			for i, t := range result.Threads {
				tables[i] = t.HeavyHitters
			}
			o.topList = heavyhitter.Merge(tables, o.cfg.Estimator.TopT, o.cfg.Estimator.NRThreads)
		}
		o.accelerators.BroadcastHeavyHitters(o.topList, o.maxNodeID)
	}

	o.cfg.Logger.Info("broadcasting %s (update %d)", PhaseCount, updateIndex)
	cCtx, cSpan := o.cfg.Tracer.Start(ctx, "orchestrator.count")
	err = o.accelerators.BroadcastCount(cCtx)
	cSpan.End()
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeInvariant, fmt.Sprintf("orchestrator: update %d count failed", updateIndex), err)
	}

	if o.cfg.Estimator.UpdateRegion > 0 {
		edgesInUpdate, totalUpdate := o.accelerators.UpdateRegionOccupancy()
		o.cfg.Logger.Debug("update %d update-region occupancy: edges_in_update=%d total_update=%d",
			updateIndex, edgesInUpdate, totalUpdate)
	}

	reports := o.accelerators.CollectReports()
	estimated := estimate.Estimate(reports, o.triplets, o.cfg.Estimator.Colors, o.edgesKept, o.edgesSeen)

	elapsed := o.cfg.Clock.Since(start)
	o.cfg.Logger.Info("update %d complete: estimate=%d elapsed=%s", updateIndex, estimated, elapsed)

	if o.cfg.History != nil {
		_ = o.cfg.History.Record(history.Run{
			Seed:             o.cfg.Estimator.Seed,
			Colors:           o.cfg.Estimator.Colors,
			SampleSize:       o.cfg.Estimator.SampleSize,
			P:                o.cfg.Estimator.P,
			MisraGriesK:      o.cfg.Estimator.MisraGriesK,
			TopT:             o.cfg.Estimator.TopT,
			UpdateIndex:      updateIndex,
			UpdateFile:       updateFile,
			TriangleEstimate: estimated,
			ElapsedMS:        elapsed.Milliseconds(),
		})
	}

	return estimated, nil
}
