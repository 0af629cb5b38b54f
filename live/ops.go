package live

import (
	"parlo/trerr"
	"parlo/turns"
	"parlo/wire"
)

// The client-originated control operations are fire-and-forget
// advisories: they do not block, do not guarantee the in-flight turn
// stops, and local turn state only changes once the corresponding
// server event arrives.

// CancelResponse asks the service to stop the in-flight response.
func (c *Client) CancelResponse() {
	c.send(wire.ResponseCancel())
}

// ClearInput discards whatever audio the service has buffered.
func (c *Client) ClearInput() {
	c.send(wire.InputClear())
}

// Commit marks the buffered input audio as a completed utterance.
func (c *Client) Commit() {
	c.send(wire.InputCommit())
}

// CreateResponse explicitly requests a translation response.
func (c *Client) CreateResponse() {
	c.send(wire.ResponseCreate())
}

// UpdateSession pushes a session reconfiguration.
func (c *Client) UpdateSession(cfg wire.SessionConfig) {
	c.send(wire.SessionUpdate(cfg))
}

// Configure sends the initial session.update derived from the client
// options: translation instructions, voice, both modalities.
func (c *Client) Configure() {
	c.UpdateSession(wire.SessionConfig{
		Instructions: c.opts.Instructions,
		Voice:        c.opts.Voice,
		Modalities:   []string{"text", "audio"},
	})
}

func (c *Client) send(ev wire.ClientEvent) {
	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()
	if t == nil {
		c.log.Warn("no transport, dropping event", "type", ev.Type)
		return
	}
	payload, err := ev.Marshal()
	if err != nil {
		c.log.Error("marshal client event", "type", ev.Type, "error", err)
		return
	}
	if err := t.Send(payload); err != nil {
		c.log.Error("send client event", "type", ev.Type, "error", err)
	}
}

// clientSink adapts the Client to the turn processor's sink. Methods
// run synchronously on the dispatch goroutine.
type clientSink Client

func (s *clientSink) TurnState(state turns.State) {
	(*Client)(s).emit(TurnStateUpdate{State: state})
}

func (s *clientSink) Partial(input, output string) {
	(*Client)(s).emit(PartialUpdate{Input: input, Output: output})
}

func (s *clientSink) TurnDone(rec turns.Record) {
	(*Client)(s).emit(TurnUpdate{Record: rec})
}

func (s *clientSink) TurnError(err *trerr.Error) {
	(*Client)(s).emit(ErrorUpdate{Err: err})
}

func (s *clientSink) RateLimits(limits []wire.RateLimit) {
	(*Client)(s).emit(RateLimitUpdate{Limits: limits})
}
