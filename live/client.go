// Package live drives one realtime translation session: it owns the
// transport, derives connection state from transport signals, runs the
// bounded reconnect policy, and feeds inbound control frames through
// the turn processor. All shared state is mutated either under the
// client mutex or from the single dispatch goroutine of the current
// session generation; callbacks from superseded generations are
// discarded by checking the generation counter.
package live

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"parlo/audio"
	"parlo/rtc"
	"parlo/trerr"
	"parlo/turns"
	"parlo/wire"
)

const (
	DefaultMaxReconnects = 3
	DefaultBackoffBase   = time.Second
	DefaultBackoffCap    = 8 * time.Second
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	NegotiateURL string
	WebsocketURL string
	UseWebsocket bool
	STUNServers  []string

	Device  string
	Capture audio.Options
	Sink    *audio.Sink

	Direction    turns.Direction
	Voice        string
	Instructions string

	MaxReconnects int
	BackoffBase   time.Duration
	BackoffCap    time.Duration
	HistoryCap    int

	Logger *log.Logger
}

// Client is the realtime session client. One live Client serves one
// logical conversation; Connect after a failure starts a fresh
// session on the same Client.
type Client struct {
	log  *log.Logger
	opts Options

	mu         sync.Mutex
	gen        uint64
	credential string
	attempts   int
	connState  ConnState
	transport  rtc.Transport
	capture    rtc.Media

	proc    *turns.Processor
	history *turns.History
	updates chan Update

	// Seams for tests.
	openCapture  func() (rtc.Media, error)
	newTransport func(credential string, capture rtc.Media) rtc.Transport
	after        func(time.Duration) <-chan time.Time
}

func NewClient(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.MaxReconnects == 0 {
		opts.MaxReconnects = DefaultMaxReconnects
	}
	if opts.BackoffBase == 0 {
		opts.BackoffBase = DefaultBackoffBase
	}
	if opts.BackoffCap == 0 {
		opts.BackoffCap = DefaultBackoffCap
	}

	c := &Client{
		log:       opts.Logger,
		opts:      opts,
		connState: ConnDisconnected,
		history:   turns.NewHistory(opts.HistoryCap),
		updates:   make(chan Update, 64),
		after:     time.After,
	}
	c.proc = turns.NewProcessor(c.history, opts.Direction, (*clientSink)(c), opts.Logger)

	c.openCapture = func() (rtc.Media, error) {
		src, err := audio.OpenDevice(opts.Device, opts.Capture)
		if err != nil {
			return nil, err
		}
		return audio.NewCapture(src, opts.Capture, opts.Logger)
	}
	c.newTransport = func(credential string, capture rtc.Media) rtc.Transport {
		if opts.UseWebsocket {
			return rtc.NewWSTransport(rtc.WSConfig{
				URL:        opts.WebsocketURL,
				Credential: credential,
				Capture:    capture,
				Logger:     opts.Logger,
			})
		}
		return rtc.NewPeerTransport(rtc.PeerConfig{
			NegotiateURL: opts.NegotiateURL,
			Credential:   credential,
			STUNServers:  opts.STUNServers,
			Capture:      capture,
			Sink:         opts.Sink,
			Logger:       opts.Logger,
		})
	}
	return c
}

// Updates is the subscription point for presentation layers. Slow
// consumers lose updates rather than stalling the session.
func (c *Client) Updates() <-chan Update {
	return c.updates
}

func (c *Client) ConnState() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connState
}

func (c *Client) History() []turns.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Records()
}

// Connect establishes a new session with the given ephemeral
// credential. Device and negotiation failures surface immediately and
// leave the session failed; there is no automatic retry of a failed
// initial connect.
func (c *Client) Connect(ctx context.Context, credential string) error {
	c.mu.Lock()
	switch c.connState {
	case ConnConnecting, ConnConnected, ConnReconnecting:
		c.mu.Unlock()
		return trerr.Connection("session already active", nil)
	}
	c.gen++
	gen := c.gen
	c.credential = credential
	c.attempts = 0
	c.setConnStateLocked(ConnConnecting)
	c.mu.Unlock()

	return c.establish(ctx, gen, credential)
}

func (c *Client) establish(ctx context.Context, gen uint64, credential string) error {
	capture, err := c.openCapture()
	if err != nil {
		terr := trerr.Audio("acquire capture device", err)
		c.failSession(gen, terr)
		return terr
	}

	t := c.newTransport(credential, capture)

	c.mu.Lock()
	if gen != c.gen {
		// A Disconnect won the race; release what we grabbed.
		c.mu.Unlock()
		capture.Stop()
		t.Close()
		return trerr.Connection("session superseded", nil)
	}
	c.transport = t
	c.capture = capture
	c.mu.Unlock()

	go c.dispatch(gen, t)

	if err := t.Connect(ctx); err != nil {
		// failSession bumps the generation before the transport comes
		// down, so the dying transport's closed signal is already
		// stale when the dispatch loop drains it. failSession owns
		// the close; a superseding Disconnect already did it.
		terr := trerr.Connection("establish session", err)
		c.failSession(gen, terr)
		return terr
	}

	c.mu.Lock()
	if gen != c.gen {
		// A Disconnect won while the transport was connecting; it
		// already tore everything down.
		c.mu.Unlock()
		return trerr.Connection("session superseded", nil)
	}
	c.mu.Unlock()

	c.log.Info("session established", "gen", gen)
	return nil
}

// Disconnect tears the session down unconditionally: it wins over any
// in-flight connect or pending reconnect, stops all owned media
// tracks, and resets session state. Idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.gen++
	t := c.transport
	capture := c.capture
	c.transport = nil
	c.capture = nil
	c.credential = ""
	c.attempts = 0
	c.proc.Reset()
	c.setConnStateLocked(ConnDisconnected)
	c.mu.Unlock()

	if t != nil {
		t.Close()
	} else if capture != nil {
		capture.Stop()
	}
}

// dispatch is the single consumer of one transport generation's
// inbound streams. Everything that mutates turn buffers or connection
// state funnels through here or through the public API under the
// mutex.
func (c *Client) dispatch(gen uint64, t rtc.Transport) {
	for {
		select {
		case sig := <-t.Signals():
			c.handleSignal(gen, sig)
		case raw := <-t.Events():
			c.handleEvent(gen, raw)
		case <-t.Done():
			// Drain anything already queued, then stop.
			for {
				select {
				case sig := <-t.Signals():
					c.handleSignal(gen, sig)
				case raw := <-t.Events():
					c.handleEvent(gen, raw)
				default:
					return
				}
			}
		}
	}
}

func (c *Client) handleSignal(gen uint64, sig rtc.Signal) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}

	prev := c.connState
	d := decide(c.connState, sig, c.attempts, c.opts.MaxReconnects)
	c.attempts = d.Attempts
	c.setConnStateLocked(d.State)
	credential := c.credential
	attempt := c.attempts
	c.mu.Unlock()

	c.log.Debug("transport signal", "signal", sig, "state", d.State)

	switch d.Effect {
	case effectReconnect:
		if credential == "" {
			c.failSession(gen, trerr.Connection("no credential for reconnect", nil))
			return
		}
		go c.reconnectAfter(gen, attempt, credential)
	case effectFail:
		if prev == ConnFailed {
			return
		}
		c.failSession(gen, trerr.Connection("transport failed", nil))
	}
}

func (c *Client) handleEvent(gen uint64, raw []byte) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	ev, err := wire.Decode(raw)
	if err != nil {
		// One malformed frame never terminates a healthy session.
		c.log.Error("drop control frame", "error", err)
		c.mu.Unlock()
		return
	}
	c.proc.Process(ev)
	c.mu.Unlock()
}

// reconnectDelay is the backoff before attempt n (1-based):
// min(base*2^(n-1), cap).
func reconnectDelay(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

func (c *Client) reconnectAfter(gen uint64, attempt int, credential string) {
	delay := reconnectDelay(c.opts.BackoffBase, c.opts.BackoffCap, attempt)
	c.log.Info("reconnect scheduled", "attempt", attempt, "delay", delay)
	<-c.after(delay)

	c.mu.Lock()
	if gen != c.gen {
		// Disconnected (or superseded) while we slept.
		c.mu.Unlock()
		return
	}
	// Full teardown: no partial reuse of peer-connection internals.
	old := c.transport
	c.gen++
	newGen := c.gen
	c.transport = nil
	c.capture = nil
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}

	c.log.Info("reconnecting", "attempt", attempt)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.establish(ctx, newGen, credential); err != nil {
		c.log.Error("reconnect attempt failed", "attempt", attempt, "error", err)
	}
}

// failSession moves the session to failed, forces the turn state to
// error, and reports the error. Stale generations are ignored.
func (c *Client) failSession(gen uint64, terr *trerr.Error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	// Bump the generation so the dying transport's own closed signal
	// cannot walk the state back off failed.
	c.gen++
	t := c.transport
	capture := c.capture
	c.transport = nil
	c.capture = nil
	c.setConnStateLocked(ConnFailed)
	c.proc.Fail()
	c.mu.Unlock()

	if t != nil {
		t.Close()
	} else if capture != nil {
		capture.Stop()
	}
	c.emit(ErrorUpdate{Err: terr})
	c.log.Error("session failed", "kind", terr.Kind, "error", terr)
}

func (c *Client) setConnStateLocked(s ConnState) {
	if c.connState == s {
		return
	}
	c.connState = s
	c.emit(ConnUpdate{State: s})
}

func (c *Client) emit(u Update) {
	select {
	case c.updates <- u:
	default:
		c.log.Warn("update dropped", "update", u)
	}
}
