// Package result holds the shaped search hit returned to callers.
package result

import "github.com/constructiq/permitsearch/internal/domain/permit"

// Hit is a raw index match before hydration: a record id and its
// similarity score.
type Hit struct {
	ID    string
	Score float64
}

// Entry is a single shaped search result: a hit joined with its canonical
// record snapshot.
type Entry struct {
	id     string
	score  float64
	record *permit.Record
}

// New creates a shaped search entry.
func New(id string, score float64, record *permit.Record) Entry {
	return Entry{id: id, score: score, record: record}
}

// ID returns the record identifier.
func (e *Entry) ID() string { return e.id }

// Score returns the similarity score.
func (e *Entry) Score() float64 { return e.score }

// Record returns the canonical record snapshot.
func (e *Entry) Record() *permit.Record { return e.record }
