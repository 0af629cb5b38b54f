// Package turns assembles streamed transcript fragments into discrete
// translation turns and keeps the bounded turn history.
package turns

import "time"

// State is the remote service's current activity on an open session.
// It is independent of the connection state and only meaningful while
// connected.
type State string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateProcessing State = "processing"
	StateSpeaking   State = "speaking"
	StateError      State = "error"
)

// Direction is a source/target language pair.
type Direction struct {
	Source string
	Target string
}

// Record is one completed turn. Immutable once created.
type Record struct {
	ID        string
	CreatedAt time.Time
	Direction Direction
	Input     string
	Output    string
}
