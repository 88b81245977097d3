// Package edgeio is the external collaborator named in the specification's
// §1/§6: the graph input file reader. The specification calls it out only
// as an interface ("a memory-mapped text stream yielding (u,v) pairs") and
// explicitly places it out of scope for the core estimator. This package
// supplies that interface (Source) plus the one reference implementation
// needed to run the system end to end: a line-oriented text reader over
// the file format in §6, and an in-memory Source for tests.
package edgeio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/trifab/trifab/internal/graph"
)

// Source is the pull API the batch router consumes: "next_edge() ->
// Option<Edge>" per §9's design notes, layered over whatever storage medium
// is behind it.
type Source interface {
	// Next returns the next raw (u, v) pair and true, or false once the
	// source is exhausted. Self-loops are filtered out by the source, per
	// the input contract (§6).
	Next() (u, v graph.NodeID, ok bool, err error)
}

// Header is the graph size declared by the input file's first
// (non-comment) line: "rows cols nnz".
type Header struct {
	Rows int64
	Cols int64
	NNZ  int64
}

// TextSource reads the §6 text format from a bufio.Reader: optional
// '%'-prefixed comment lines, one header line "rows cols nnz", then one
// edge per line as whitespace-separated ASCII integers. Self-loops are
// discarded; duplicate edges are not detected, per the input contract.
type TextSource struct {
	r      *bufio.Scanner
	Header Header
}

// NewTextSource reads the header (skipping '%' comments) and returns a
// Source positioned at the first edge line.
func NewTextSource(r io.Reader) (*TextSource, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var header Header
	found := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("edgeio: malformed header line %q", line)
		}
		rows, err1 := strconv.ParseInt(fields[0], 10, 64)
		cols, err2 := strconv.ParseInt(fields[1], 10, 64)
		nnz, err3 := strconv.ParseInt(fields[2], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("edgeio: malformed header line %q", line)
		}
		header = Header{Rows: rows, Cols: cols, NNZ: nnz}
		found = true
		break
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("edgeio: missing header line")
	}
	return &TextSource{r: scanner, Header: header}, nil
}

// Next implements Source. It silently skips self-loops and blank lines,
// returning the next canonical-input edge.
func (s *TextSource) Next() (u, v graph.NodeID, ok bool, err error) {
	for s.r.Scan() {
		line := strings.TrimSpace(s.r.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, 0, false, fmt.Errorf("edgeio: malformed edge line %q", line)
		}
		a, err1 := strconv.ParseUint(fields[0], 10, 32)
		b, err2 := strconv.ParseUint(fields[1], 10, 32)
		if err1 != nil || err2 != nil {
			return 0, 0, false, fmt.Errorf("edgeio: malformed edge line %q", line)
		}
		if a == b {
			continue // self-loop, discarded per input contract
		}
		return graph.NodeID(a), graph.NodeID(b), true, nil
	}
	if err := s.r.Err(); err != nil {
		return 0, 0, false, err
	}
	return 0, 0, false, nil
}

// SliceSource is an in-memory Source, substituted for tests and for the
// end-to-end scenarios in §8 that describe edges directly rather than via
// a file.
type SliceSource struct {
	edges []graph.Edge
	pos   int
}

// NewSliceSource builds a Source over a fixed list of already-canonical
// edges.
func NewSliceSource(edges []graph.Edge) *SliceSource {
	return &SliceSource{edges: edges}
}

// Next implements Source.
func (s *SliceSource) Next() (u, v graph.NodeID, ok bool, err error) {
	if s.pos >= len(s.edges) {
		return 0, 0, false, nil
	}
	e := s.edges[s.pos]
	s.pos++
	if e.U == e.V {
		return s.Next()
	}
	return e.U, e.V, true, nil
}
