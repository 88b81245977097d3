// Package sorter implements the tiered parallel quicksort (component C7):
// a four-phase pivot-split sort (partition, prefix-sum, reorder, per-bucket
// quicksort) over an accelerator's reservoir sample, modeling the original
// scratchpad/local-store tiered memory hierarchy as a single in-memory pass
// with an explicit bucket count standing in for the tier boundary.
package sorter

import (
	"math/bits"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/trifab/trifab/internal/graph"
	"github.com/trifab/trifab/pkg/apperr"
	"github.com/trifab/trifab/pkg/collections"
)

// maxStackDepth bounds Phase D's explicit quicksort stack at 32 levels
// (§4.7), sufficient for up to 2^32 elements with a balanced median-of-five
// pivot choice.
const maxStackDepth = 32

// selectionSortThreshold is the bucket size below which Phase D falls back
// to selection sort instead of partitioning further.
const selectionSortThreshold = 10

// Config parameterizes one sort pass.
type Config struct {
	NRSplits   int // logical buckets produced by Phase A; rounded up to a power of two
	NRWorkers  int
	MaxNodeID  graph.NodeID
	Seed       int64
}

// Sort runs the four-phase tiered quicksort over edges and returns a new
// sorted slice; edges is left untouched.
func Sort(edges []graph.Edge, cfg Config) ([]graph.Edge, error) {
	n := len(edges)
	if n == 0 {
		return nil, nil
	}

	splits := nextPowerOfTwo(cfg.NRSplits)
	if splits < 1 {
		splits = 1
	}
	workers := cfg.NRWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	levels := bits.Len(uint(splits)) - 1

	bucketOf := bucketFunc(cfg.MaxNodeID, levels)

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

	// Phase A: per-worker per-split counts.
	countsPerWorker := make([][]int, workers)
	var wgA sync.WaitGroup
	for w := 0; w < workers; w++ {
		wgA.Add(1)
		go func(w int) {
			defer wgA.Done()
			counts := make([]int, splits)
			lo, hi := ranges[w][0], ranges[w][1]
			for i := lo; i < hi; i++ {
				counts[bucketOf(edges[i])]++
			}
			countsPerWorker[w] = counts
		}(w)
	}
	wgA.Wait()

	// Phase B: prefix sums, both across splits (splitBase) and across
	// workers within a split (offsetPerWorker).
	splitBase := make([]int, splits+1)
	offsetPerWorker := make([][]int, workers)
	for w := range offsetPerWorker {
		offsetPerWorker[w] = make([]int, splits)
	}
	for s := 0; s < splits; s++ {
		running := splitBase[s]
		for w := 0; w < workers; w++ {
			offsetPerWorker[w][s] = running
			running += countsPerWorker[w][s]
		}
		splitBase[s+1] = running
	}

	// Phase C: reorder each worker's contribution into the contiguous
	// per-split destination region.
	output := make([]graph.Edge, n)
	cursor := make([][]int, workers)
	for w := range cursor {
		cursor[w] = append([]int(nil), offsetPerWorker[w]...)
	}
	var wgC sync.WaitGroup
	for w := 0; w < workers; w++ {
		wgC.Add(1)
		go func(w int) {
			defer wgC.Done()
			lo, hi := ranges[w][0], ranges[w][1]
			for i := lo; i < hi; i++ {
				e := edges[i]
				b := bucketOf(e)
				output[cursor[w][b]] = e
				cursor[w][b]++
			}
		}(w)
	}
	wgC.Wait()

	// Phase D: per-bucket local sort, work-stolen off a shared counter.
	var nextBucket atomic.Int64
	var firstErr error
	var errMu sync.Mutex
	var wgD sync.WaitGroup
	for w := 0; w < workers; w++ {
		wgD.Add(1)
		go func(workerSeed int64) {
			defer wgD.Done()
			rng := rand.New(rand.NewSource(cfg.Seed + workerSeed + 1))
			for {
				s := nextBucket.Add(1) - 1
				if s >= int64(splits) {
					return
				}
				lo, hi := splitBase[s], splitBase[s+1]-1
				if hi <= lo {
					continue
				}
				if err := quicksortBounded(output[lo:hi+1], rng); err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					errMu.Unlock()
					return
				}
			}
		}(int64(w))
	}
	wgD.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return output, nil
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// bucketFunc returns a function assigning each edge to one of 2^levels
// buckets via a binary-tree halving of the pivot (u, v), starting at
// (maxID, maxID) per §4.7: at each level the remaining key range is
// bisected and the edge's combined (u,v) key decides which half it falls
// in, so bucket i's key range is strictly below bucket i+1's.
func bucketFunc(maxID graph.NodeID, levels int) func(graph.Edge) int {
	hiBound := (uint64(maxID) + 1) << 32
	hiBound |= uint64(maxID) + 1
	return func(e graph.Edge) int {
		key := uint64(e.U)<<32 | uint64(e.V)
		lo, hi := uint64(0), hiBound
		bucket := 0
		for l := 0; l < levels; l++ {
			mid := lo + (hi-lo)/2
			bucket <<= 1
			if key < mid {
				hi = mid
			} else {
				bucket |= 1
				lo = mid
			}
		}
		return bucket
	}
}

// sortFrame is one [lo, hi] inclusive range awaiting partitioning.
type sortFrame struct {
	lo, hi int
}

// quicksortBounded sorts data in place with an iterative quicksort whose
// explicit stack never exceeds maxStackDepth frames: after each partition,
// the larger side is pushed and the smaller side continues in the same
// loop iteration, which is the standard trick that bounds stack depth to
// O(log n) instead of O(n) on adversarial input.
func quicksortBounded(data []graph.Edge, rng *rand.Rand) error {
	stack := collections.NewStack[sortFrame](maxStackDepth)
	stack.Push(sortFrame{lo: 0, hi: len(data) - 1})

	for !stack.IsEmpty() {
		frame, _ := stack.Pop()
		lo, hi := frame.lo, frame.hi

		for hi-lo+1 > selectionSortThreshold {
			pivot := medianOfFive(data, lo, hi, rng)
			i, j := hoarePartition(data, lo, hi, pivot)

			leftLo, leftHi := lo, j
			rightLo, rightHi := i, hi

			if (leftHi - leftLo) > (rightHi - rightLo) {
				if stack.Len() >= maxStackDepth {
					return apperr.Invariant("sorter: recursion depth exceeded %d levels", maxStackDepth)
				}
				stack.Push(sortFrame{lo: leftLo, hi: leftHi})
				lo, hi = rightLo, rightHi
			} else {
				if stack.Len() >= maxStackDepth {
					return apperr.Invariant("sorter: recursion depth exceeded %d levels", maxStackDepth)
				}
				stack.Push(sortFrame{lo: rightLo, hi: rightHi})
				lo, hi = leftLo, leftHi
			}
		}
		selectionSort(data[lo : hi+1])
	}
	return nil
}

// medianOfFive samples five random positions in [lo, hi] and returns the
// median of their values as the partition pivot.
func medianOfFive(data []graph.Edge, lo, hi int, rng *rand.Rand) graph.Edge {
	span := hi - lo + 1
	pick := func() graph.Edge { return data[lo+rng.Intn(span)] }
	samples := [5]graph.Edge{pick(), pick(), pick(), pick(), pick()}
	for i := 1; i < len(samples); i++ {
		for j := i; j > 0 && samples[j].Less(samples[j-1]); j-- {
			samples[j], samples[j-1] = samples[j-1], samples[j]
		}
	}
	return samples[2]
}

// hoarePartition partitions data[lo..hi] around pivot, returning (i, j)
// such that data[lo..j] <= pivot <= data[i..hi].
func hoarePartition(data []graph.Edge, lo, hi int, pivot graph.Edge) (int, int) {
	i, j := lo, hi
	for i <= j {
		for data[i].Less(pivot) {
			i++
		}
		for pivot.Less(data[j]) {
			j--
		}
		if i <= j {
			data[i], data[j] = data[j], data[i]
			i++
			j--
		}
	}
	return i, j
}

// selectionSort sorts a small slice in place; used as Phase D's fallback
// at or below selectionSortThreshold elements.
func selectionSort(data []graph.Edge) {
	for i := 0; i < len(data); i++ {
		min := i
		for j := i + 1; j < len(data); j++ {
			if data[j].Less(data[min]) {
				min = j
			}
		}
		if min != i {
			data[i], data[min] = data[min], data[i]
		}
	}
}
