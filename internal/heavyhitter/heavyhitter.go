// Package heavyhitter implements the per-router-thread Misra-Gries
// approximate heavy-hitter table (component C3) and the global reduction
// that merges per-thread tables into a single top-t candidate list.
package heavyhitter

import (
	"sort"

	"github.com/trifab/trifab/internal/graph"
	"github.com/trifab/trifab/pkg/collections"
)

// slot is one open-addressed table entry. Occupancy is tracked separately
// in Table.occupied, a Bitset, rather than an extra bool per slot.
type slot struct {
	id   graph.NodeID
	freq int64
}

// Table is a fixed-capacity Misra-Gries counter, open-addressed with linear
// probing. It is owned by exactly one router thread; nothing in this type
// is safe for concurrent use.
type Table struct {
	slots      []slot
	occupied   *collections.Bitset
	capS       int // table capacity S = firstPrime(2k)
	k          int // max distinct candidates tracked
	nrElements int
	maxProbe   int
}

// New builds a Table tracking up to k candidates.
func New(k int) *Table {
	s := FirstPrime(2 * k)
	if s < 1 {
		s = 1
	}
	return &Table{
		slots:    make([]slot, s),
		occupied: collections.NewBitset(s),
		capS:     s,
		k:        k,
	}
}

// FirstPrime returns the smallest prime >= n (n < 2 returns 2).
func FirstPrime(n int) int {
	if n < 2 {
		return 2
	}
	for candidate := n; ; candidate++ {
		if isPrime(candidate) {
			return candidate
		}
	}
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := 3; d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// Observe runs one Misra-Gries update for id.
func (t *Table) Observe(id graph.NodeID) {
	if t.capS == 0 {
		return
	}
	start := int(id) % t.capS

	// 1. probe for an existing entry, at most maxProbe+1 slots.
	for d := 0; d <= t.maxProbe; d++ {
		i := (start + d) % t.capS
		if t.occupied.Test(i) && t.slots[i].id == id {
			t.slots[i].freq++
			return
		}
	}

	// 2. table has room: insert at first free slot found by linear probing.
	if t.nrElements < t.k {
		for d := 0; d < t.capS; d++ {
			i := (start + d) % t.capS
			if !t.occupied.Test(i) {
				t.slots[i] = slot{id: id, freq: 1}
				t.occupied.Set(i)
				t.nrElements++
				if d > t.maxProbe {
					t.maxProbe = d
				}
				return
			}
		}
		return
	}

	// 3. table full and id unseen: decrement every slot, freeing any that
	// reach zero.
	for i := range t.slots {
		if !t.occupied.Test(i) {
			continue
		}
		t.slots[i].freq--
		if t.slots[i].freq <= 0 {
			t.slots[i] = slot{}
			t.occupied.Clear(i)
			t.nrElements--
		}
	}
}

// Entry is a candidate node id and its tracked frequency.
type Entry struct {
	ID   graph.NodeID
	Freq int64
}

// Top returns up to n entries ordered by descending frequency.
func (t *Table) Top(n int) []Entry {
	entries := make([]Entry, 0, t.nrElements)
	t.occupied.Iterate(func(i int) bool {
		if t.slots[i].freq > 0 {
			entries = append(entries, Entry{ID: t.slots[i].id, Freq: t.slots[i].freq})
		}
		return true
	})
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Freq != entries[j].Freq {
			return entries[i].Freq > entries[j].Freq
		}
		return entries[i].ID < entries[j].ID
	})
	if n < len(entries) {
		entries = entries[:n]
	}
	return entries
}

// Merge performs the global reduction: it takes the union of the top-2t
// slots from each router thread's table, sums frequencies on collisions in
// a table of capacity nrThreads*2t, and returns the top-t candidates by
// frequency.
func Merge(perThread []*Table, t int, nrThreads int) []Entry {
	globalCap := nrThreads * 2 * t
	if globalCap < 1 {
		globalCap = 1
	}
	acc := make(map[graph.NodeID]int64, globalCap)
	order := make([]graph.NodeID, 0, globalCap)
	for _, table := range perThread {
		if table == nil {
			continue
		}
		for _, e := range table.Top(2 * t) {
			if _, ok := acc[e.ID]; !ok {
				order = append(order, e.ID)
			}
			acc[e.ID] += e.Freq
		}
	}

	merged := make([]Entry, 0, len(order))
	for _, id := range order {
		merged = append(merged, Entry{ID: id, Freq: acc[id]})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Freq != merged[j].Freq {
			return merged[i].Freq > merged[j].Freq
		}
		return merged[i].ID < merged[j].ID
	})
	if t < len(merged) {
		merged = merged[:t]
	}
	return merged
}
