// Package archive keeps the bounded ranked record of the best structures
// seen across a whole run and persists them at the end.
package archive

import (
	"sync"
)

// DefaultCapacity is the default number of retained structures.
const DefaultCapacity = 5

// Entry is one retained candidate: the structure, where it came from and its
// separation distance in nanometers.
type Entry struct {
	Distance       float64 `yaml:"distance_nm"`
	Round          int     `yaml:"round"`
	SampleID       int     `yaml:"sample_id"`
	StructurePath  string  `yaml:"structure"`
	TrajectoryPath string  `yaml:"trajectory,omitempty"`
}

// Archive is a bounded ranked list of the top-K distinct structures by
// ascending distance. Entries are deduplicated by structure path identity:
// offering a path already retained is a no-op regardless of distance, since a
// structure file is immutable once produced.
type Archive struct {
	mu      sync.Mutex
	cap     int
	entries []Entry
}

// New returns an archive retaining at most capacity entries. capacity <= 0
// uses DefaultCapacity.
func New(capacity int) *Archive {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Archive{cap: capacity}
}

// Offer inserts the candidate if it ranks within the top K. Insertion is
// O(K). It reports whether the entry was retained.
func (a *Archive) Offer(e Entry) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, have := range a.entries {
		if have.StructurePath == e.StructurePath {
			return false
		}
	}

	// find insertion point, stable for equal distances (earlier offers win)
	pos := len(a.entries)
	for i, have := range a.entries {
		if e.Distance < have.Distance {
			pos = i
			break
		}
	}
	if pos >= a.cap {
		return false
	}

	a.entries = append(a.entries, Entry{})
	copy(a.entries[pos+1:], a.entries[pos:])
	a.entries[pos] = e
	if len(a.entries) > a.cap {
		a.entries = a.entries[:a.cap]
	}
	return true
}

// Entries returns the retained entries in ascending distance order.
func (a *Archive) Entries() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Best returns the best retained entry, if any.
func (a *Archive) Best() (Entry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.entries) == 0 {
		return Entry{}, false
	}
	return a.entries[0], true
}

// Len returns the number of retained entries.
func (a *Archive) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
