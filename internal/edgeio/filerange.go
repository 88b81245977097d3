package edgeio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/trifab/trifab/internal/graph"
)

// ReadHeader reads the §6 header line ("rows cols nnz", skipping '%'
// comments and blank lines) from f without disturbing callers that later
// want to partition the remainder of the file by byte offset: it returns
// the byte offset immediately following the header line, which is where
// edge data begins.
func ReadHeader(f *os.File) (Header, int64, error) {
	reader := bufio.NewReader(f)
	var offset int64
	for {
		line, err := reader.ReadString('\n')
		offset += int64(len(line))
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "%") {
			if err != nil {
				return Header{}, 0, fmt.Errorf("edgeio: missing header line")
			}
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 3 {
			return Header{}, 0, fmt.Errorf("edgeio: malformed header line %q", trimmed)
		}
		rows, err1 := strconv.ParseInt(fields[0], 10, 64)
		cols, err2 := strconv.ParseInt(fields[1], 10, 64)
		nnz, err3 := strconv.ParseInt(fields[2], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return Header{}, 0, fmt.Errorf("edgeio: malformed header line %q", trimmed)
		}
		return Header{Rows: rows, Cols: cols, NNZ: nnz}, offset, nil
	}
}

// Partition splits the byte range [dataStart, total) into n contiguous,
// roughly equal ranges for the batch router's per-thread slices (spec.md
// §4.4's "a character-addressable view of the edge file ... divided into
// NR_THREADS slices by byte offset").
func Partition(total, dataStart int64, n int) [][2]int64 {
	if n < 1 {
		n = 1
	}
	span := total - dataStart
	if span < 0 {
		span = 0
	}
	chunk := span / int64(n)
	ranges := make([][2]int64, n)
	cur := dataStart
	for i := 0; i < n; i++ {
		end := cur + chunk
		if i == n-1 || end > total {
			end = total
		}
		ranges[i] = [2]int64{cur, end}
		cur = end
	}
	return ranges
}

// FileRangeSource is a Source over one byte range [start, end) of a file.
// If start falls mid-line, the leading partial line is discarded (the
// previous thread's FileRangeSource is the one that reads past its own end
// to finish that line) per spec.md §4.4 step 1.
type FileRangeSource struct {
	f       *os.File
	scanner *bufio.Scanner
	end     int64
	pos     int64
}

// NewFileRangeSource opens path and positions a Source at start, aligning
// forward past any partial leading line.
func NewFileRangeSource(path string, start, end int64) (*FileRangeSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("edgeio: open %q: %w", path, err)
	}

	// A range only starts mid-line if the byte immediately before start is
	// not a newline. When the partition boundary happens to land exactly on
	// a line start, the preceding range already ended cleanly there and
	// there is no partial line to discard.
	midLine := false
	if start > 0 {
		prev := make([]byte, 1)
		if _, err := f.ReadAt(prev, start-1); err != nil {
			f.Close()
			return nil, err
		}
		midLine = prev[0] != '\n'

		if _, err := f.Seek(start, io.SeekStart); err != nil {
			f.Close()
			return nil, err
		}
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	pos := start
	if midLine {
		// Discard the partial line this range starts in the middle of; the
		// thread that owns the preceding range reads past its own end to
		// finish it.
		if scanner.Scan() {
			pos += int64(len(scanner.Bytes())) + 1
		} else if err := scanner.Err(); err != nil {
			f.Close()
			return nil, err
		}
	}

	return &FileRangeSource{f: f, scanner: scanner, end: end, pos: pos}, nil
}

// Next implements Source. It reads at least up to end, then continues one
// line further if that line straddles the boundary, absorbing it instead
// of leaving it for the next range to duplicate.
func (s *FileRangeSource) Next() (u, v graph.NodeID, ok bool, err error) {
	for {
		if s.pos >= s.end {
			return 0, 0, false, nil
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return 0, 0, false, err
			}
			return 0, 0, false, nil
		}
		line := s.scanner.Bytes()
		s.pos += int64(len(line)) + 1

		trimmed := strings.TrimSpace(string(line))
		if trimmed == "" {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 2 {
			return 0, 0, false, fmt.Errorf("edgeio: malformed edge line %q", trimmed)
		}
		a, err1 := strconv.ParseUint(fields[0], 10, 32)
		b, err2 := strconv.ParseUint(fields[1], 10, 32)
		if err1 != nil || err2 != nil {
			return 0, 0, false, fmt.Errorf("edgeio: malformed edge line %q", trimmed)
		}
		if a == b {
			continue
		}
		return graph.NodeID(a), graph.NodeID(b), true, nil
	}
}

// Close releases the underlying file handle.
func (s *FileRangeSource) Close() error {
	return s.f.Close()
}

// OpenThreaded opens path, parses its header, and returns nrThreads
// FileRangeSources partitioning the remaining edge data by byte offset,
// ready to be handed to the batch router one per thread.
func OpenThreaded(path string, nrThreads int) (Header, []*FileRangeSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, fmt.Errorf("edgeio: open %q: %w", path, err)
	}
	header, dataStart, err := ReadHeader(f)
	f.Close()
	if err != nil {
		return Header{}, nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return Header{}, nil, err
	}

	ranges := Partition(info.Size(), dataStart, nrThreads)
	sources := make([]*FileRangeSource, len(ranges))
	for i, r := range ranges {
		src, err := NewFileRangeSource(path, r[0], r[1])
		if err != nil {
			for _, opened := range sources[:i] {
				opened.Close()
			}
			return Header{}, nil, err
		}
		sources[i] = src
	}
	return header, sources, nil
}
