package remap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trifab/trifab/internal/graph"
	"github.com/trifab/trifab/internal/heavyhitter"
	"github.com/trifab/trifab/internal/remap"
)

func mustEdge(t *testing.T, u, v uint32) graph.Edge {
	t.Helper()
	e, err := graph.New(graph.NodeID(u), graph.NodeID(v))
	if err != nil {
		t.Fatalf("graph.New(%d,%d): %v", u, v, err)
	}
	return e
}

func TestMapping_ApplyThenReverseIsIdentity(t *testing.T) {
	top := []heavyhitter.Entry{
		{ID: 3, Freq: 100},
		{ID: 7, Freq: 80},
		{ID: 1, Freq: 50},
	}
	maxID := graph.NodeID(10)
	mapping := remap.Build(top, maxID)

	original := []graph.Edge{
		mustEdge(t, 1, 2),
		mustEdge(t, 3, 7),
		mustEdge(t, 0, 1),
		mustEdge(t, 4, 9),
	}
	sample := make([]graph.Edge, len(original))
	copy(sample, original)

	mapping.Apply(sample)
	for _, e := range sample {
		assert.True(t, e.Canonical())
	}

	mapping.Reverse(sample)
	assert.Equal(t, original, sample)
}

func TestMapping_RanksGetDescendingSentinelIDs(t *testing.T) {
	top := []heavyhitter.Entry{
		{ID: 100, Freq: 9},
		{ID: 200, Freq: 5},
	}
	mapping := remap.Build(top, 50)

	sample := []graph.Edge{mustEdge(t, 100, 200)}
	mapping.Apply(sample)

	// rank 0 (id=100) -> 50+2-0=52, rank 1 (id=200) -> 50+2-1=51
	assert.Equal(t, graph.NodeID(51), sample[0].U)
	assert.Equal(t, graph.NodeID(52), sample[0].V)
}

func TestMapping_EmptyIsNoop(t *testing.T) {
	mapping := remap.Build(nil, 10)
	assert.True(t, mapping.Empty())

	sample := []graph.Edge{mustEdge(t, 1, 2)}
	before := make([]graph.Edge, len(sample))
	copy(before, sample)
	mapping.Apply(sample)
	assert.Equal(t, before, sample)
}
