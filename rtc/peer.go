package rtc

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/pion/webrtc/v4"

	"parlo/audio"
)

const controlChannelLabel = "oai-events"

// PeerConfig wires a PeerTransport. Capture is mandatory; Sink is
// optional (no sink means remote audio is discarded).
type PeerConfig struct {
	NegotiateURL string
	Credential   string
	STUNServers  []string
	Capture      Media
	Sink         *audio.Sink
	HTTPClient   *http.Client
	Logger       *log.Logger
}

// PeerTransport is the WebRTC transport session: one peer connection,
// one ordered reliable control channel, the local capture track bound
// before the offer. One instance serves one connection attempt;
// reconnects build a fresh one.
type PeerTransport struct {
	cfg PeerConfig
	log *log.Logger

	pc      *webrtc.PeerConnection
	channel *webrtc.DataChannel

	events  chan []byte
	signals chan Signal
	done    chan struct{}

	closeOnce sync.Once
}

func NewPeerTransport(cfg PeerConfig) *PeerTransport {
	if len(cfg.STUNServers) == 0 {
		cfg.STUNServers = []string{"stun:stun.l.google.com:19302"}
	}
	return &PeerTransport{
		cfg:     cfg,
		log:     cfg.Logger,
		events:  make(chan []byte, 256),
		signals: make(chan Signal, 16),
		done:    make(chan struct{}),
	}
}

func (t *PeerTransport) Events() <-chan []byte  { return t.events }
func (t *PeerTransport) Signals() <-chan Signal { return t.signals }
func (t *PeerTransport) Done() <-chan struct{}  { return t.done }

func (t *PeerTransport) Connect(ctx context.Context) error {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: t.cfg.STUNServers}},
	})
	if err != nil {
		return fmt.Errorf("create peer connection: %w", err)
	}
	t.pc = pc

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		if sig := iceSignal(state); sig != "" {
			t.emit(sig)
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if t.cfg.Sink == nil {
			t.log.Debug("remote track ignored, no sink")
			return
		}
		go t.cfg.Sink.Consume(track)
	})

	ordered := true
	channel, err := pc.CreateDataChannel(controlChannelLabel, &webrtc.DataChannelInit{
		Ordered: &ordered,
	})
	if err != nil {
		return fmt.Errorf("create control channel: %w", err)
	}
	t.channel = channel

	channel.OnOpen(func() {
		t.log.Info("control channel open")
		t.cfg.Capture.Start()
	})
	channel.OnMessage(func(msg webrtc.DataChannelMessage) {
		select {
		case t.events <- msg.Data:
		case <-t.done:
		default:
			t.log.Warn("event channel full, dropping frame")
		}
	})

	if _, err := pc.AddTrack(t.cfg.Capture.Track()); err != nil {
		return fmt.Errorf("bind capture track: %w", err)
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		return fmt.Errorf("gather candidates: %w", ctx.Err())
	}

	answer, err := Negotiate(
		ctx, t.cfg.HTTPClient,
		t.cfg.NegotiateURL, t.cfg.Credential,
		pc.LocalDescription().SDP,
	)
	if err != nil {
		return err
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer,
	}); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}

	return nil
}

// Send writes one control event. When the channel is not open this is
// a logged no-op: control events are fire-and-forget, never queued.
func (t *PeerTransport) Send(payload []byte) error {
	if t.channel == nil || t.channel.ReadyState() != webrtc.DataChannelStateOpen {
		t.log.Warn("control channel not open, dropping event")
		return nil
	}
	if err := t.channel.SendText(string(payload)); err != nil {
		return fmt.Errorf("send control event: %w", err)
	}
	return nil
}

// Close is idempotent: stops the capture track, closes the control
// channel and the peer connection.
func (t *PeerTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.cfg.Capture.Stop()
		if t.channel != nil {
			if cerr := t.channel.Close(); cerr != nil {
				t.log.Debug("close control channel", "error", cerr)
			}
		}
		if t.pc != nil {
			err = t.pc.Close()
		}
		close(t.done)
	})
	return err
}

func (t *PeerTransport) emit(sig Signal) {
	select {
	case t.signals <- sig:
	case <-t.done:
	default:
		t.log.Warn("signal channel full", "signal", sig)
	}
}
