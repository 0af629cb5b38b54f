package live

import (
	"parlo/trerr"
	"parlo/turns"
	"parlo/wire"
)

// Update is what presentation layers subscribe to. The variants are a
// closed set; consumers switch on the concrete type.
type Update interface {
	update()
}

// ConnUpdate reports a connection state change.
type ConnUpdate struct {
	State ConnState
}

// TurnStateUpdate reports a translation turn state change.
type TurnStateUpdate struct {
	State turns.State
}

// PartialUpdate carries the in-flight turn's buffers; Output is
// non-final and may still grow or be overwritten.
type PartialUpdate struct {
	Input  string
	Output string
}

// TurnUpdate carries one completed, history-recorded turn.
type TurnUpdate struct {
	Record turns.Record
}

// ErrorUpdate surfaces a translation error. Recoverable errors are
// informational; non-recoverable ones accompany a failed session.
type ErrorUpdate struct {
	Err *trerr.Error
}

// RateLimitUpdate relays the service's rate-limit advisory.
type RateLimitUpdate struct {
	Limits []wire.RateLimit
}

func (ConnUpdate) update()      {}
func (TurnStateUpdate) update() {}
func (PartialUpdate) update()   {}
func (TurnUpdate) update()      {}
func (ErrorUpdate) update()     {}
func (RateLimitUpdate) update() {}
