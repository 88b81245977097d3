package sorter_test

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trifab/trifab/internal/graph"
	"github.com/trifab/trifab/internal/sorter"
)

func mustEdge(t *testing.T, u, v uint32) graph.Edge {
	t.Helper()
	e, err := graph.New(graph.NodeID(u), graph.NodeID(v))
	require.NoError(t, err)
	return e
}

func assertSortedAndPermutation(t *testing.T, input, output []graph.Edge) {
	t.Helper()
	require.Len(t, output, len(input))
	for i := 1; i < len(output); i++ {
		assert.False(t, output[i].Less(output[i-1]), "output must be lexicographically non-decreasing at index %d", i)
	}

	want := make([]graph.Edge, len(input))
	copy(want, input)
	sort.Slice(want, func(i, j int) bool { return want[i].Less(want[j]) })
	got := make([]graph.Edge, len(output))
	copy(got, output)
	sort.Slice(got, func(i, j int) bool { return got[i].Less(got[j]) })
	assert.Equal(t, want, got, "sort output must be a permutation of the input")
}

func randomEdges(n int, maxID uint32, seed int64) []graph.Edge {
	rng := rand.New(rand.NewSource(seed))
	edges := make([]graph.Edge, 0, n)
	for len(edges) < n {
		u := rng.Uint32() % (maxID + 1)
		v := rng.Uint32() % (maxID + 1)
		if u == v {
			continue
		}
		e, _ := graph.New(graph.NodeID(u), graph.NodeID(v))
		edges = append(edges, e)
	}
	return edges
}

func TestSort_RandomEdgesSortedAndPermutation(t *testing.T) {
	for _, n := range []int{0, 1, 5, 11, 100, 5000} {
		edges := randomEdges(n, 10_000, int64(n)+1)
		out, err := sorter.Sort(edges, sorter.Config{NRSplits: 8, NRWorkers: 4, MaxNodeID: 10_000, Seed: 7})
		require.NoError(t, err)
		if n == 0 {
			assert.Empty(t, out)
			continue
		}
		assertSortedAndPermutation(t, edges, out)
	}
}

func TestSort_SmallBucketUsesSelectionSortFallback(t *testing.T) {
	edges := []graph.Edge{
		mustEdge(t, 5, 9),
		mustEdge(t, 1, 2),
		mustEdge(t, 3, 4),
		mustEdge(t, 1, 9),
	}
	out, err := sorter.Sort(edges, sorter.Config{NRSplits: 1, NRWorkers: 1, MaxNodeID: 10, Seed: 1})
	require.NoError(t, err)
	assertSortedAndPermutation(t, edges, out)
}

func TestSort_AllDuplicateKeysDegenerateBucket(t *testing.T) {
	edges := make([]graph.Edge, 0, 200)
	for i := 0; i < 200; i++ {
		edges = append(edges, mustEdge(t, 3, 4))
	}
	out, err := sorter.Sort(edges, sorter.Config{NRSplits: 16, NRWorkers: 4, MaxNodeID: 10, Seed: 3})
	require.NoError(t, err)
	assertSortedAndPermutation(t, edges, out)
}

func TestSort_SingleWorkerSingleSplit(t *testing.T) {
	edges := randomEdges(300, 500, 11)
	out, err := sorter.Sort(edges, sorter.Config{NRSplits: 1, NRWorkers: 1, MaxNodeID: 500, Seed: 11})
	require.NoError(t, err)
	assertSortedAndPermutation(t, edges, out)
}
