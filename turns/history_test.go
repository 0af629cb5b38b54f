package turns

import (
	"fmt"
	"testing"
	"time"
)

func TestHistoryOrderAndNoDedup(t *testing.T) {
	h := NewHistory(10)
	dir := Direction{Source: "en", Target: "pt"}
	at := time.Now()

	h.Add("hello", "olá", dir, at)
	h.Add("hello", "olá", dir, at)

	records := h.Records()
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if records[0].ID == records[1].ID {
		t.Fatal("identical pairs must get distinct record IDs")
	}
	if records[0].Input != "hello" || records[1].Output != "olá" {
		t.Fatalf("unexpected records: %#v", records)
	}
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(100)
	dir := Direction{Source: "en", Target: "pt"}

	for i := 1; i <= 101; i++ {
		h.Add(fmt.Sprintf("in-%d", i), fmt.Sprintf("out-%d", i), dir, time.Now())
	}

	if h.Len() != 100 {
		t.Fatalf("len = %d, want 100", h.Len())
	}
	records := h.Records()
	if records[0].Input != "in-2" {
		t.Fatalf("oldest surviving record = %q, want in-2", records[0].Input)
	}
	if records[99].Input != "in-101" {
		t.Fatalf("newest record = %q, want in-101", records[99].Input)
	}
}

func TestHistoryRecordsReturnsCopy(t *testing.T) {
	h := NewHistory(10)
	h.Add("a", "b", Direction{}, time.Now())

	records := h.Records()
	records[0].Input = "mutated"

	if h.Records()[0].Input != "a" {
		t.Fatal("Records must not expose internal storage")
	}
}
