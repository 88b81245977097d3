// Package router implements the batch router (component C4): parallel
// threads read slices of the edge stream, color and dispatch each edge, and
// flush per-(thread, accelerator) batches to the accelerator fabric.
package router

import (
	"context"
	"math/rand"
	"sync"

	"github.com/trifab/trifab/internal/color"
	"github.com/trifab/trifab/internal/dispatch"
	"github.com/trifab/trifab/internal/edgeio"
	"github.com/trifab/trifab/internal/graph"
	"github.com/trifab/trifab/internal/heavyhitter"
	"github.com/trifab/trifab/pkg/apperr"
	"github.com/trifab/trifab/pkg/collections"
	"github.com/trifab/trifab/pkg/logging"
	"github.com/trifab/trifab/pkg/parallel"
)

// maxFlushBytes bounds one chunked-broadcast slice to 8 MiB, per §4.4's
// flush discipline.
const maxFlushBytes = 8 * 1024 * 1024

const edgeSize = 8 // two uint32 fields

// maxChunkEdges is the number of edges that fit in one maxFlushBytes slice.
const maxChunkEdges = maxFlushBytes / edgeSize

// Sink receives a flushed batch bound for one accelerator. Implementations
// (the reservoir sampler, in production) must be safe for concurrent calls
// across distinct accelerator ids; the router never calls Sink with the
// same id concurrently from two goroutines because one shared mutex
// serializes a thread's entire flush.
type Sink interface {
	Ingest(id dispatch.AcceleratorID, edges []graph.Edge) error
}

// Config parameterizes one routing pass.
type Config struct {
	NRThreads     int
	P             float64 // edge acceptance probability, 1.0 = keep everything
	BatchCapacity int     // per-(thread,accelerator) batch capacity before a flush
	HeavyHitterK  int     // Misra-Gries capacity per thread; 0 disables C3
	Seed          int64
	Color         color.Params
	Dispatcher    dispatch.Dispatcher
	Logger        logging.Logger
}

// ThreadResult summarizes one thread's contribution after routing.
type ThreadResult struct {
	MaxNodeID    graph.NodeID
	EdgesKept    int64
	EdgesSeen    int64 // edges observed before the -p acceptance filter
	HeavyHitters *heavyhitter.Table // nil if heavy-hitter tracking is disabled
}

// Result aggregates every thread's contribution.
type Result struct {
	MaxNodeID graph.NodeID
	EdgesKept int64
	EdgesSeen int64
	Threads   []ThreadResult
}

// Router drives the C4 batch routing phase.
type Router struct {
	cfg        Config
	transferMu sync.Mutex
	pool       *collections.SlicePool[graph.Edge]
	logger     logging.Logger
}

// New builds a Router. sources must already be partitioned one-per-thread
// (the byte-offset split and straddling-line alignment of §4.4 step 1 is
// edgeio's and the caller's responsibility; Router only consumes already
// line-aligned Sources).
func New(cfg Config) *Router {
	if cfg.P <= 0 {
		cfg.P = 1.0
	}
	if cfg.BatchCapacity <= 0 {
		cfg.BatchCapacity = 4096
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NullLogger{}
	}
	return &Router{
		cfg:    cfg,
		pool:   collections.NewSlicePool[graph.Edge](cfg.BatchCapacity),
		logger: logger,
	}
}

// Route runs one thread per source concurrently, dispatching edges to sink,
// and returns the merged result. observeHeavyHitters gates Misra-Gries
// observation (first update only, per §4.11).
func (r *Router) Route(ctx context.Context, sources []edgeio.Source, sink Sink, observeHeavyHitters bool) (Result, error) {
	results := make([]ThreadResult, len(sources))
	errs := make([]error, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(idx int, src edgeio.Source) {
			defer wg.Done()
			res, err := r.routeThread(ctx, idx, src, sink, observeHeavyHitters)
			results[idx] = res
			errs[idx] = err
		}(i, src)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return Result{}, err
		}
	}

	agg := Result{Threads: results}
	for _, tr := range results {
		if tr.MaxNodeID > agg.MaxNodeID {
			agg.MaxNodeID = tr.MaxNodeID
		}
		agg.EdgesKept += tr.EdgesKept
		agg.EdgesSeen += tr.EdgesSeen
	}
	return agg, nil
}

// threadState holds one router thread's private working set: its own
// batches and its own Misra-Gries table, per §5's "no sharing on the hot
// path" rule.
type threadState struct {
	id      int
	rng     *rand.Rand
	hh      *heavyhitter.Table
	batches map[dispatch.AcceleratorID]*[]graph.Edge
}

func (r *Router) routeThread(ctx context.Context, id int, src edgeio.Source, sink Sink, observeHeavyHitters bool) (ThreadResult, error) {
	st := &threadState{
		id:      id,
		rng:     rand.New(rand.NewSource(r.cfg.Seed + int64(id))),
		batches: make(map[dispatch.AcceleratorID]*[]graph.Edge),
	}
	if r.cfg.HeavyHitterK > 0 {
		st.hh = heavyhitter.New(r.cfg.HeavyHitterK)
	}

	var maxNodeID graph.NodeID
	var edgesKept int64
	var edgesSeen int64

	for {
		select {
		case <-ctx.Done():
			return ThreadResult{}, ctx.Err()
		default:
		}

		u, v, ok, err := src.Next()
		if err != nil {
			return ThreadResult{}, apperr.IO(err, "router: thread %d failed reading edge", id)
		}
		if !ok {
			break
		}

		e, err := graph.New(u, v)
		if err != nil {
			continue // self-loop; should already be filtered by the source
		}
		if e.U > maxNodeID {
			maxNodeID = e.U
		}
		if e.V > maxNodeID {
			maxNodeID = e.V
		}
		edgesSeen++

		if r.cfg.P < 1.0 && st.rng.Float64() >= r.cfg.P {
			continue
		}
		edgesKept++

		if observeHeavyHitters && st.hh != nil {
			st.hh.Observe(e.U)
			st.hh.Observe(e.V)
		}

		lo, hi := color.EdgeColors(r.cfg.Color, e)
		targets := r.cfg.Dispatcher.Dispatch(lo, hi)

		needFlush := false
		for _, target := range targets {
			buf := st.batches[target]
			if buf == nil {
				buf = r.pool.Get()
				st.batches[target] = buf
			}
			*buf = append(*buf, e)
			if len(*buf) >= r.cfg.BatchCapacity {
				needFlush = true
			}
		}
		if needFlush {
			if err := r.flush(ctx, st, sink); err != nil {
				return ThreadResult{}, err
			}
		}
	}

	if err := r.flush(ctx, st, sink); err != nil {
		return ThreadResult{}, err
	}

	return ThreadResult{MaxNodeID: maxNodeID, EdgesKept: edgesKept, EdgesSeen: edgesSeen, HeavyHitters: st.hh}, nil
}

// flush implements §4.4's flush discipline: repeatedly ship a bounded
// (<=8MiB) slice of every non-empty batch to the accelerators in parallel
// until all of this thread's batches are drained. One shared mutex
// serializes a thread's entire flush against every other thread's flush,
// per §5's single shared accelerator-transfer resource.
func (r *Router) flush(ctx context.Context, st *threadState, sink Sink) error {
	r.transferMu.Lock()
	defer r.transferMu.Unlock()

	type target struct {
		id  dispatch.AcceleratorID
		buf *[]graph.Edge
	}
	active := make([]target, 0, len(st.batches))
	for id, buf := range st.batches {
		if len(*buf) > 0 {
			active = append(active, target{id: id, buf: buf})
		}
	}
	if len(active) == 0 {
		return nil
	}

	r.logger.Debug("router: thread %d flushing %d accelerator batches", st.id, len(active))

	for {
		round := make([]target, 0, len(active))
		for _, t := range active {
			if len(*t.buf) > 0 {
				round = append(round, t)
			}
		}
		if len(round) == 0 {
			break
		}

		_, err := parallel.ForEach(ctx, round, parallel.DefaultPoolConfig(), func(ctx context.Context, t target) error {
			n := len(*t.buf)
			if n > maxChunkEdges {
				n = maxChunkEdges
			}
			chunk := (*t.buf)[:n]
			if err := sink.Ingest(t.id, chunk); err != nil {
				return apperr.Transfer(err, "router: ingest to accelerator %d failed", t.id)
			}
			*t.buf = (*t.buf)[n:]
			return nil
		})
		if err != nil {
			return err
		}
	}

	for id, buf := range st.batches {
		*buf = (*buf)[:0]
		r.pool.Put(buf)
		delete(st.batches, id)
	}
	return nil
}
