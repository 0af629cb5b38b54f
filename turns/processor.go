package turns

import (
	"time"

	"github.com/charmbracelet/log"

	"parlo/trerr"
	"parlo/wire"
)

// Sink receives the processor's outputs. All methods are invoked
// synchronously from the session dispatch loop; implementations must
// not block.
type Sink interface {
	TurnState(State)
	Partial(input, output string)
	TurnDone(Record)
	TurnError(*trerr.Error)
	RateLimits([]wire.RateLimit)
}

// Processor decodes server events into turn-state transitions and
// assembles transcript fragments into finalized input/output pairs.
// At most one pending turn exists at a time; a finalized non-empty
// pair is flushed into History before the buffers clear.
type Processor struct {
	log     *log.Logger
	sink    Sink
	history *History
	dir     Direction
	now     func() time.Time

	state  State
	input  string
	output string
}

func NewProcessor(history *History, dir Direction, sink Sink, logger *log.Logger) *Processor {
	return &Processor{
		log:     logger,
		sink:    sink,
		history: history,
		dir:     dir,
		now:     time.Now,
		state:   StateIdle,
	}
}

func (p *Processor) State() State {
	return p.state
}

// Reset clears the pending turn without flushing. Used on disconnect.
func (p *Processor) Reset() {
	p.input = ""
	p.output = ""
	p.setState(StateIdle)
}

// Process handles one decoded server event. It is called only from
// the single dispatch goroutine, so the buffers need no locking.
func (p *Processor) Process(ev wire.ServerEvent) {
	switch ev := ev.(type) {
	case wire.SessionCreated:
		p.log.Info("session", "id", ev.SessionID)

	case wire.SessionUpdated:
		p.log.Debug("session updated")

	case wire.SpeechStarted:
		// Barge-in: a new utterance before the previous turn finalized
		// flushes whatever accumulated, even an incomplete pair.
		if p.input != "" || p.output != "" {
			p.flush()
		}
		p.setState(StateListening)

	case wire.SpeechStopped:
		p.setState(StateProcessing)

	case wire.InputTranscriptDone:
		// Input transcription arrives batched and already final:
		// replace, don't append.
		p.input = ev.Transcript
		p.sink.Partial(p.input, p.output)

	case wire.OutputDelta:
		if p.output == "" {
			p.setState(StateSpeaking)
		}
		p.output += ev.Delta
		p.sink.Partial(p.input, p.output)

	case wire.OutputDone:
		// Authoritative final text overwrites the accumulated deltas
		// so a dropped fragment can't cause drift.
		p.output = ev.Transcript
		p.sink.Partial(p.input, p.output)

	case wire.ResponseCreated:
		p.log.Debug("response", "id", ev.ResponseID)

	case wire.ResponseDone:
		if p.input != "" && p.output != "" {
			p.flush()
		}
		// The turn is over either way; an incomplete pair must not
		// leak into the next turn.
		p.input = ""
		p.output = ""
		p.setState(StateIdle)

	case wire.ErrorEvent:
		terr := trerr.API(ev.ErrType, ev.Message)
		if !terr.Recoverable {
			p.setState(StateError)
		}
		p.sink.TurnError(terr)

	case wire.RateLimitsUpdated:
		p.sink.RateLimits(ev.Limits)

	default:
		p.log.Warn("unhandled event", "type", ev.EventType())
	}
}

// Fail forces the turn state machine into error. Called by the session
// state machine on non-recoverable transport failures.
func (p *Processor) Fail() {
	p.setState(StateError)
}

func (p *Processor) flush() {
	rec := p.history.Add(p.input, p.output, p.dir, p.now())
	p.log.Info("turn",
		"in", p.input,
		"out", p.output,
	)
	p.input = ""
	p.output = ""
	p.sink.TurnDone(rec)
}

func (p *Processor) setState(s State) {
	if p.state == s {
		return
	}
	p.state = s
	p.sink.TurnState(s)
}
