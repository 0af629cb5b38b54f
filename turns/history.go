package turns

import (
	"time"

	"parlo/etc"
)

// DefaultHistoryCap bounds memory, not correctness: oldest records are
// evicted once the cap is reached.
const DefaultHistoryCap = 100

// History is an append-only, insertion-ordered sequence of completed
// turns. Insertion order equals completion order. No deduplication:
// identical pairs produce distinct records.
type History struct {
	max     int
	records []Record
}

func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultHistoryCap
	}
	return &History{max: max}
}

func (h *History) Add(input, output string, dir Direction, at time.Time) Record {
	rec := Record{
		ID:        etc.NewFreshID(),
		CreatedAt: at,
		Direction: dir,
		Input:     input,
		Output:    output,
	}
	h.records = append(h.records, rec)
	if len(h.records) > h.max {
		h.records = h.records[len(h.records)-h.max:]
	}
	return rec
}

func (h *History) Len() int {
	return len(h.records)
}

// Records returns a copy, oldest first.
func (h *History) Records() []Record {
	out := make([]Record, len(h.records))
	copy(out, h.records)
	return out
}
