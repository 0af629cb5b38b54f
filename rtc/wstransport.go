package rtc

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"parlo/wire"
)

// WSConfig wires a WSTransport.
type WSConfig struct {
	URL        string
	Credential string
	Capture    Media
	Logger     *log.Logger
}

// WSTransport carries the same session over a single websocket, for
// networks where the peer-to-peer path cannot establish. Control
// frames are text messages; captured audio rides in-band as base64
// input_audio_buffer.append events. Connectivity signals are
// synthesized from the socket lifecycle since there is no ICE layer.
type WSTransport struct {
	cfg WSConfig
	log *log.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	events  chan []byte
	signals chan Signal
	done    chan struct{}

	closeOnce sync.Once
}

func NewWSTransport(cfg WSConfig) *WSTransport {
	return &WSTransport{
		cfg:     cfg,
		log:     cfg.Logger,
		events:  make(chan []byte, 256),
		signals: make(chan Signal, 16),
		done:    make(chan struct{}),
	}
}

func (t *WSTransport) Events() <-chan []byte  { return t.events }
func (t *WSTransport) Signals() <-chan Signal { return t.signals }
func (t *WSTransport) Done() <-chan struct{}  { return t.done }

func (t *WSTransport) Connect(ctx context.Context) error {
	t.emit(SignalChecking)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+t.cfg.Credential)

	conn, _, err := dialer.DialContext(ctx, t.cfg.URL, header)
	if err != nil {
		t.emit(SignalFailed)
		return fmt.Errorf("dial %s: %w", t.cfg.URL, err)
	}
	t.conn = conn
	t.emit(SignalConnected)

	t.cfg.Capture.SetFrameHandler(t.sendAudio)
	t.cfg.Capture.Start()

	go t.readLoop()
	return nil
}

func (t *WSTransport) readLoop() {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			select {
			case <-t.done:
				// Torn down by us.
			default:
				t.log.Error("websocket read", "error", err)
				t.emit(SignalDisconnected)
			}
			return
		}
		select {
		case t.events <- data:
		case <-t.done:
			return
		default:
			t.log.Warn("event channel full, dropping frame")
		}
	}
}

func (t *WSTransport) Send(payload []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if t.conn == nil {
		t.log.Warn("websocket not open, dropping event")
		return nil
	}
	select {
	case <-t.done:
		t.log.Warn("websocket closed, dropping event")
		return nil
	default:
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("send control event: %w", err)
	}
	return nil
}

func (t *WSTransport) sendAudio(frame []byte) {
	ev := wire.InputAppend(base64.StdEncoding.EncodeToString(frame))
	payload, err := ev.Marshal()
	if err != nil {
		t.log.Error("marshal audio append", "error", err)
		return
	}
	if err := t.Send(payload); err != nil {
		t.log.Error("append audio", "error", err)
	}
}

func (t *WSTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		t.cfg.Capture.Stop()
		if t.conn != nil {
			err = t.conn.Close()
		}
		t.emit(SignalClosed)
	})
	return err
}

func (t *WSTransport) emit(sig Signal) {
	select {
	case t.signals <- sig:
	default:
		t.log.Warn("signal channel full", "signal", sig)
	}
}
