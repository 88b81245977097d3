package color_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trifab/trifab/internal/color"
	"github.com/trifab/trifab/internal/graph"
)

func TestOf_WithinRange(t *testing.T) {
	p := color.Params{A: 17, B: 5, C: 4}
	for id := graph.NodeID(0); id < 1000; id++ {
		c := color.Of(p, id)
		assert.Less(t, uint32(c), p.C)
	}
}

func TestOf_BitExactDeterministic(t *testing.T) {
	p := color.Params{A: 31, B: 11, C: 8}
	a := color.Of(p, 12345)
	b := color.Of(p, 12345)
	assert.Equal(t, a, b)
}

func TestEdgeColors_OrderedLoHi(t *testing.T) {
	p := color.Params{A: 17, B: 5, C: 4}
	e, err := graph.New(1, 2)
	require.NoError(t, err)
	lo, hi := color.EdgeColors(p, e)
	assert.LessOrEqual(t, lo, hi)

	// Swapping endpoints must not change the unordered color pair.
	e2, err := graph.New(2, 1)
	require.NoError(t, err)
	lo2, hi2 := color.EdgeColors(p, e2)
	assert.Equal(t, lo, lo2)
	assert.Equal(t, hi, hi2)
}
