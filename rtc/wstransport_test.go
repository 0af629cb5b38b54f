package rtc

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	pionwebrtc "github.com/pion/webrtc/v4"
)

type nullMedia struct {
	frameHandler func([]byte)
	started      bool
	stopped      bool
}

func (m *nullMedia) Track() *pionwebrtc.TrackLocalStaticSample { return nil }
func (m *nullMedia) SetFrameHandler(fn func([]byte))           { m.frameHandler = fn }
func (m *nullMedia) Start()                                    { m.started = true }
func (m *nullMedia) Stop()                                     { m.stopped = true }

func wsEcho(t *testing.T, gotAuth *string, serverFrames []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotAuth = r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		for _, f := range serverFrames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Hold the socket until the client hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func recvSignal(t *testing.T, tr Transport) Signal {
	t.Helper()
	select {
	case sig := <-tr.Signals():
		return sig
	case <-time.After(2 * time.Second):
		t.Fatal("no signal")
		return ""
	}
}

func TestWSTransportConnect(t *testing.T) {
	var gotAuth string
	srv := wsEcho(t, &gotAuth, []string{`{"type":"session.created"}`})
	defer srv.Close()

	media := &nullMedia{}
	tr := NewWSTransport(WSConfig{
		URL:        wsURL(srv.URL),
		Credential: "ek_ws",
		Capture:    media,
		Logger:     log.New(io.Discard),
	})
	defer tr.Close()

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if sig := recvSignal(t, tr); sig != SignalChecking {
		t.Fatalf("first signal = %s", sig)
	}
	if sig := recvSignal(t, tr); sig != SignalConnected {
		t.Fatalf("second signal = %s", sig)
	}
	if gotAuth != "Bearer ek_ws" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if !media.started {
		t.Fatal("capture not started after connect")
	}
	if media.frameHandler == nil {
		t.Fatal("audio frames not diverted into the socket")
	}

	select {
	case raw := <-tr.Events():
		if string(raw) != `{"type":"session.created"}` {
			t.Fatalf("event = %s", raw)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
	}
}

func TestWSTransportDialFailure(t *testing.T) {
	media := &nullMedia{}
	tr := NewWSTransport(WSConfig{
		URL:     "ws://127.0.0.1:1/nope",
		Capture: media,
		Logger:  log.New(io.Discard),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := tr.Connect(ctx); err == nil {
		t.Fatal("expected dial error")
	}
	if sig := recvSignal(t, tr); sig != SignalChecking {
		t.Fatalf("first signal = %s", sig)
	}
	if sig := recvSignal(t, tr); sig != SignalFailed {
		t.Fatalf("second signal = %s", sig)
	}
	if media.started {
		t.Fatal("capture must not start on dial failure")
	}
}

func TestWSTransportServerDrop(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close() // drop immediately
	}))
	defer srv.Close()

	tr := NewWSTransport(WSConfig{
		URL:     wsURL(srv.URL),
		Capture: &nullMedia{},
		Logger:  log.New(io.Discard),
	})
	defer tr.Close()

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	recvSignal(t, tr) // checking
	recvSignal(t, tr) // connected

	if sig := recvSignal(t, tr); sig != SignalDisconnected {
		t.Fatalf("signal after drop = %s", sig)
	}
}

func TestWSTransportCloseStopsCapture(t *testing.T) {
	var gotAuth string
	srv := wsEcho(t, &gotAuth, nil)
	defer srv.Close()

	media := &nullMedia{}
	tr := NewWSTransport(WSConfig{
		URL:     wsURL(srv.URL),
		Capture: media,
		Logger:  log.New(io.Discard),
	})
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !media.stopped {
		t.Fatal("capture still running after close")
	}
	select {
	case <-tr.Done():
	default:
		t.Fatal("done not closed")
	}
	// Close after close is a no-op.
	if err := tr.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
