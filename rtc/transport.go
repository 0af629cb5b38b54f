// Package rtc owns the connection to the remote speech-translation
// service: the peer-to-peer audio path, the ordered control channel,
// and the credential-authenticated negotiation handshake.
package rtc

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// Signal is a raw transport-level connectivity signal. The session
// state machine consumes these; nothing else drives connection state.
type Signal string

const (
	SignalChecking     Signal = "checking"
	SignalConnected    Signal = "connected"
	SignalDisconnected Signal = "disconnected"
	SignalFailed       Signal = "failed"
	SignalClosed       Signal = "closed"
)

// Media is the locally captured audio the transport binds and owns
// for the session's lifetime. Satisfied by *audio.Capture.
type Media interface {
	Track() *webrtc.TrackLocalStaticSample
	SetFrameHandler(func([]byte))
	Start()
	Stop()
}

// Transport is what the session client consumes. Implementations:
// PeerTransport (WebRTC, the default) and WSTransport (websocket
// fallback for UDP-hostile networks).
type Transport interface {
	// Connect performs the full handshake. Any failure leaves the
	// transport unusable; callers tear it down and build a new one.
	Connect(ctx context.Context) error

	// Send writes one serialized control event. Fire-and-forget: when
	// the channel is not open this logs and drops, it never queues.
	Send(payload []byte) error

	// Events delivers inbound control frames in send order.
	Events() <-chan []byte

	// Signals delivers connectivity signals.
	Signals() <-chan Signal

	// Done is closed once the transport is torn down.
	Done() <-chan struct{}

	Close() error
}

// iceSignal folds pion ICE states into the signal set; completed folds
// into connected. States with no table entry return "".
func iceSignal(state webrtc.ICEConnectionState) Signal {
	switch state {
	case webrtc.ICEConnectionStateChecking:
		return SignalChecking
	case webrtc.ICEConnectionStateConnected, webrtc.ICEConnectionStateCompleted:
		return SignalConnected
	case webrtc.ICEConnectionStateDisconnected:
		return SignalDisconnected
	case webrtc.ICEConnectionStateFailed:
		return SignalFailed
	case webrtc.ICEConnectionStateClosed:
		return SignalClosed
	default:
		return ""
	}
}
