package pretoken

import (
	"cmp"
	"maps"

	heap "github.com/emirpasic/gods/v2/trees/binaryheap"
)

// Counts maps a pretoken to the number of times it occurs.
type Counts map[string]int

// AddAll adds every count in other to c.
func (c Counts) AddAll(other Counts) {
	for k, v := range other {
		c[k] += v
	}
}

// Total returns the number of pretokens counted, with repeats.
func (c Counts) Total() (n int) {
	for _, v := range c {
		n += v
	}
	return n
}

func (c Counts) Clone() Counts {
	if c == nil {
		return Counts{}
	}
	return maps.Clone(c)
}

// Merge sums tables into a new table. The inputs are not modified.
func Merge(tables ...Counts) Counts {
	merged := make(Counts)
	for _, t := range tables {
		merged.AddAll(t)
	}
	return merged
}

// Entry is a pretoken and its count.
type Entry struct {
	Pretoken string `json:"pretoken"`
	Count    int    `json:"count"`
}

// less reports whether a ranks below b: lower count, or equal count and a
// later pretoken.
func less(a, b Entry) int {
	if c := cmp.Compare(a.Count, b.Count); c != 0 {
		return c
	}
	return cmp.Compare(b.Pretoken, a.Pretoken)
}

// Top returns the n most frequent pretokens in c, most frequent first.
// Ties are ordered by pretoken.
func Top(c Counts, n int) []Entry {
	if n <= 0 || len(c) == 0 {
		return nil
	}

	// min-heap of the best n seen so far
	h := heap.NewWith(less)
	for k, v := range c {
		h.Push(Entry{Pretoken: k, Count: v})
		if h.Size() > n {
			h.Pop()
		}
	}

	entries := make([]Entry, h.Size())
	for i := len(entries) - 1; i >= 0; i-- {
		entries[i], _ = h.Pop()
	}
	return entries
}
