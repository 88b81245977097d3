package heavyhitter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trifab/trifab/internal/graph"
	"github.com/trifab/trifab/internal/heavyhitter"
)

func isPrimeForTest(n int) bool {
	if n < 2 {
		return false
	}
	for d := 2; d*d <= n; d++ {
		if n%d == 0 {
			return false
		}
	}
	return true
}

func TestFirstPrime_PrimeAndAtLeastInput(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 4, 10, 100, 997, 998} {
		p := heavyhitter.FirstPrime(n)
		assert.True(t, isPrimeForTest(p), "FirstPrime(%d)=%d not prime", n, p)
		assert.GreaterOrEqual(t, p, n)
	}
}

func TestObserve_FrequentNodeSurvivesEviction(t *testing.T) {
	tbl := heavyhitter.New(2)
	for i := 0; i < 100; i++ {
		tbl.Observe(1) // node 1 is observed far more than capacity allows evicting
	}
	for i := 0; i < 50; i++ {
		tbl.Observe(graph.NodeID(100 + i)) // 50 distinct one-off nodes, each evicted quickly
	}

	top := tbl.Top(1)
	assert.Len(t, top, 1)
	assert.EqualValues(t, 1, top[0].ID)
}

func TestTop_OrderedByDescendingFrequency(t *testing.T) {
	tbl := heavyhitter.New(8)
	for i := 0; i < 10; i++ {
		tbl.Observe(1)
	}
	for i := 0; i < 5; i++ {
		tbl.Observe(2)
	}
	tbl.Observe(3)

	top := tbl.Top(3)
	assert.EqualValues(t, 1, top[0].ID)
	assert.EqualValues(t, 2, top[1].ID)
	assert.EqualValues(t, 3, top[2].ID)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Freq, top[i].Freq)
	}
}

func TestMerge_SumsFrequenciesAcrossThreads(t *testing.T) {
	t1 := heavyhitter.New(4)
	t2 := heavyhitter.New(4)
	for i := 0; i < 5; i++ {
		t1.Observe(42)
	}
	for i := 0; i < 5; i++ {
		t2.Observe(42)
	}
	t1.Observe(7)

	merged := heavyhitter.Merge([]*heavyhitter.Table{t1, t2}, 2, 2)
	require.Len(t, merged, 2)
	assert.EqualValues(t, 42, merged[0].ID)
	assert.EqualValues(t, 10, merged[0].Freq)
}
