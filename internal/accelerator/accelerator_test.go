package accelerator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trifab/trifab/internal/accelerator"
	"github.com/trifab/trifab/internal/dispatch"
	"github.com/trifab/trifab/internal/graph"
	"github.com/trifab/trifab/internal/heavyhitter"
)

func mustEdge(t *testing.T, u, v uint32) graph.Edge {
	t.Helper()
	e, err := graph.New(graph.NodeID(u), graph.NodeID(v))
	require.NoError(t, err)
	return e
}

func TestAccelerator_CountFindsSingleTriangle(t *testing.T) {
	acc := accelerator.New(accelerator.Config{
		ID:         0,
		SampleSize: 8,
		NRTasklets: 2,
		Seed:       1,
	})

	edges := []graph.Edge{mustEdge(t, 1, 2), mustEdge(t, 2, 3), mustEdge(t, 1, 3)}
	require.NoError(t, acc.Ingest(edges))

	require.NoError(t, acc.Count(context.Background()))
	assert.EqualValues(t, 1, acc.Report().RawCount)
}

func TestAccelerator_ReverseRemapIsIdentityOnReMappedSample(t *testing.T) {
	acc := accelerator.New(accelerator.Config{
		ID:         0,
		SampleSize: 8,
		NRTasklets: 1,
		Seed:       1,
	})

	edges := []graph.Edge{mustEdge(t, 1, 2), mustEdge(t, 2, 100), mustEdge(t, 1, 100)}
	require.NoError(t, acc.Ingest(edges))

	acc.SetHeavyHitters([]heavyhitter.Entry{{ID: 100, Freq: 10}}, 100)
	require.NoError(t, acc.Count(context.Background()))
	assert.EqualValues(t, 1, acc.Report().RawCount)

	// Reverse remap should restore original ids so a subsequent ingest and
	// count over the same logical graph still finds the triangle.
	acc.ReverseRemap()
	require.NoError(t, acc.Count(context.Background()))
	assert.EqualValues(t, 1, acc.Report().RawCount)
}

func TestAccelerator_EmptySampleCountsZero(t *testing.T) {
	acc := accelerator.New(accelerator.Config{ID: 0, SampleSize: 4, NRTasklets: 1, Seed: 1})
	require.NoError(t, acc.Count(context.Background()))
	assert.EqualValues(t, 0, acc.Report().RawCount)
}

func TestSet_IngestRoutesToOwningAccelerator(t *testing.T) {
	a0 := accelerator.New(accelerator.Config{ID: 0, SampleSize: 4, NRTasklets: 1, Seed: 1})
	a1 := accelerator.New(accelerator.Config{ID: 1, SampleSize: 4, NRTasklets: 1, Seed: 1})
	set := accelerator.NewSet([]*accelerator.Accelerator{a0, a1})

	require.NoError(t, set.Ingest(1, []graph.Edge{mustEdge(t, 1, 2)}))
	assert.EqualValues(t, 1, a1.Report().TotalEdges)
	assert.EqualValues(t, 0, a0.Report().TotalEdges)

	err := set.Ingest(dispatch.AcceleratorID(99), []graph.Edge{mustEdge(t, 1, 2)})
	assert.Error(t, err)
}

func TestSet_BroadcastCountAndCollectReports(t *testing.T) {
	a0 := accelerator.New(accelerator.Config{ID: 0, SampleSize: 8, NRTasklets: 2, Seed: 1})
	a1 := accelerator.New(accelerator.Config{ID: 1, SampleSize: 8, NRTasklets: 2, Seed: 1})
	set := accelerator.NewSet([]*accelerator.Accelerator{a0, a1})

	require.NoError(t, a0.Ingest([]graph.Edge{mustEdge(t, 1, 2), mustEdge(t, 2, 3), mustEdge(t, 1, 3)}))

	require.NoError(t, set.BroadcastCount(context.Background()))
	reports := set.CollectReports()
	require.Len(t, reports, 2)
	assert.EqualValues(t, 1, reports[0].RawCount)
	assert.EqualValues(t, 0, reports[1].RawCount)
}
