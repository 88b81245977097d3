package triangle_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trifab/trifab/internal/graph"
	"github.com/trifab/trifab/internal/locator"
	"github.com/trifab/trifab/internal/triangle"
)

func mustEdge(t *testing.T, u, v uint32) graph.Edge {
	t.Helper()
	e, err := graph.New(graph.NodeID(u), graph.NodeID(v))
	require.NoError(t, err)
	return e
}

func sortedSample(t *testing.T, edges []graph.Edge) []graph.Edge {
	t.Helper()
	out := make([]graph.Edge, len(edges))
	copy(out, edges)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func TestCount_SingleTriangle(t *testing.T) {
	sample := sortedSample(t, []graph.Edge{mustEdge(t, 1, 2), mustEdge(t, 2, 3), mustEdge(t, 1, 3)})
	locs := locator.Build(sample, 2)
	for _, workers := range []int{1, 2, 4} {
		got := triangle.Count(sample, locs, workers)
		assert.EqualValues(t, 1, got, "workers=%d", workers)
	}
}

func TestCount_TwoDisjointTriangles(t *testing.T) {
	edges := []graph.Edge{
		mustEdge(t, 1, 2), mustEdge(t, 2, 3), mustEdge(t, 1, 3),
		mustEdge(t, 4, 5), mustEdge(t, 5, 6), mustEdge(t, 4, 6),
	}
	sample := sortedSample(t, edges)
	locs := locator.Build(sample, 3)
	got := triangle.Count(sample, locs, 3)
	assert.EqualValues(t, 2, got)
}

func TestCount_NoTriangles(t *testing.T) {
	edges := []graph.Edge{mustEdge(t, 1, 2), mustEdge(t, 2, 3), mustEdge(t, 3, 4)}
	sample := sortedSample(t, edges)
	locs := locator.Build(sample, 2)
	got := triangle.Count(sample, locs, 2)
	assert.EqualValues(t, 0, got)
}

func TestCount_EmptySample(t *testing.T) {
	got := triangle.Count(nil, nil, 4)
	assert.EqualValues(t, 0, got)
}

func TestCount_SquareHasNoTriangle(t *testing.T) {
	edges := []graph.Edge{mustEdge(t, 1, 2), mustEdge(t, 2, 3), mustEdge(t, 3, 4), mustEdge(t, 1, 4)}
	sample := sortedSample(t, edges)
	locs := locator.Build(sample, 2)
	got := triangle.Count(sample, locs, 2)
	assert.EqualValues(t, 0, got)
}
