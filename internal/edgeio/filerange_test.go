package edgeio_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trifab/trifab/internal/edgeio"
	"github.com/trifab/trifab/internal/graph"
)

func writeTempGraph(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.mtx")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func drainAll(t *testing.T, sources []*edgeio.FileRangeSource) []graph.Edge {
	t.Helper()
	var edges []graph.Edge
	for _, src := range sources {
		for {
			u, v, ok, err := src.Next()
			require.NoError(t, err)
			if !ok {
				break
			}
			edges = append(edges, graph.Edge{U: u, V: v})
		}
	}
	return edges
}

func TestOpenThreaded_SingleThreadReadsEveryEdge(t *testing.T) {
	path := writeTempGraph(t, "4 4 4\n1 2\n2 3\n3 4\n1 4\n")

	header, sources, err := edgeio.OpenThreaded(path, 1)
	require.NoError(t, err)
	defer func() {
		for _, s := range sources {
			s.Close()
		}
	}()

	assert.EqualValues(t, 4, header.Rows)
	assert.Len(t, sources, 1)

	edges := drainAll(t, sources)
	assert.Len(t, edges, 4)
}

func TestOpenThreaded_ManyThreadsPartitionWithoutDuplicatesOrLoss(t *testing.T) {
	var contents string
	contents = "50 50 50\n"
	want := 0
	for i := 1; i <= 50; i++ {
		contents += "1 "
		contents += strconv.Itoa(i + 1)
		contents += "\n"
		want++
	}
	path := writeTempGraph(t, contents)

	header, sources, err := edgeio.OpenThreaded(path, 6)
	require.NoError(t, err)
	defer func() {
		for _, s := range sources {
			s.Close()
		}
	}()

	assert.EqualValues(t, 50, header.NNZ)

	edges := drainAll(t, sources)
	assert.Len(t, edges, want)

	seen := make(map[graph.NodeID]bool)
	for _, e := range edges {
		assert.False(t, seen[e.V], "edge to %d seen twice across thread ranges", e.V)
		seen[e.V] = true
	}
}

func TestNewFileRangeSource_BoundaryAtLineStartKeepsFirstEdge(t *testing.T) {
	// "1 2\n" is 4 bytes; a range starting at offset 4 lands exactly on the
	// start of the next line, so nothing precedes it to discard.
	path := writeTempGraph(t, "1 2\n3 4\n5 6\n")

	src, err := edgeio.NewFileRangeSource(path, 4, 12)
	require.NoError(t, err)
	defer src.Close()

	u, v, ok, err := src.Next()
	require.NoError(t, err)
	require.True(t, ok, "the edge starting exactly at the range boundary must not be discarded")
	assert.EqualValues(t, 3, u)
	assert.EqualValues(t, 4, v)
}

func TestNewFileRangeSource_MidLineBoundaryDiscardsPartialLine(t *testing.T) {
	// Offset 5 lands inside "3 4\n" (one byte past its start), so that whole
	// line is a straddling partial line owned by the previous range.
	path := writeTempGraph(t, "1 2\n3 4\n5 6\n")

	src, err := edgeio.NewFileRangeSource(path, 5, 12)
	require.NoError(t, err)
	defer src.Close()

	u, v, ok, err := src.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 5, u)
	assert.EqualValues(t, 6, v)
}

func TestOpenThreaded_SkipsSelfLoopsAndCommentsAndBlankLines(t *testing.T) {
	path := writeTempGraph(t, "% a comment\n3 3 3\n1 1\n\n1 2\n2 3\n")

	_, sources, err := edgeio.OpenThreaded(path, 2)
	require.NoError(t, err)
	defer func() {
		for _, s := range sources {
			s.Close()
		}
	}()

	edges := drainAll(t, sources)
	assert.Len(t, edges, 2)
}
