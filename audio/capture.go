// Package audio owns local capture and the remote-audio sink. The
// capture side reads PCM from an exclusively-held source, encodes
// 20ms opus frames, and feeds the outbound media track; the sink side
// writes the remote (translated) track into an ogg container.
package audio

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"gopkg.in/hraban/opus.v2"
)

const FrameDuration = 20 * time.Millisecond

// Options are the fixed capture parameters requested from the input
// device. The processing flags are advisory and forwarded to sources
// that support them.
type Options struct {
	SampleRate       int
	Channels         int
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

func DefaultOptions() Options {
	return Options{
		SampleRate:       48000,
		Channels:         1,
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	}
}

// Source is an exclusively-owned PCM input. ReadPCM fills buf with
// interleaved int16 samples and returns the count read; io.EOF ends
// the capture cleanly.
type Source interface {
	ReadPCM(buf []int16) (int, error)
	Close() error
}

// Capture binds a Source to an opus-encoded outbound track. Exactly
// one Capture is live per session; Stop is idempotent and always
// releases the source.
type Capture struct {
	log     *log.Logger
	src     Source
	enc     *opus.Encoder
	track   *webrtc.TrackLocalStaticSample
	opts    Options
	onFrame func([]byte)
	stopped chan struct{}
	done    chan struct{}
}

// NewCapture acquires the encoder and outbound track for src. Encoder
// setup failure surfaces as a device-level error to the caller.
func NewCapture(src Source, opts Options, logger *log.Logger) (*Capture, error) {
	enc, err := opus.NewEncoder(opts.SampleRate, opts.Channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeOpus,
			ClockRate: 48000,
			Channels:  uint16(opts.Channels),
		},
		"audio", "parlo-capture",
	)
	if err != nil {
		return nil, fmt.Errorf("create local track: %w", err)
	}

	return &Capture{
		log:     logger,
		src:     src,
		enc:     enc,
		track:   track,
		opts:    opts,
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

func (c *Capture) Track() *webrtc.TrackLocalStaticSample {
	return c.track
}

// SetFrameHandler diverts encoded frames to fn instead of the media
// track. Used by transports that carry audio in-band. Must be called
// before Start.
func (c *Capture) SetFrameHandler(fn func([]byte)) {
	c.onFrame = fn
}

// Start pumps encoded frames onto the track until the source drains
// or Stop is called.
func (c *Capture) Start() {
	go c.pump()
}

func (c *Capture) pump() {
	defer close(c.done)

	frameSamples := c.opts.SampleRate / 1000 * 20
	pcm := make([]int16, frameSamples*c.opts.Channels)
	buf := make([]byte, 4000)
	ticker := time.NewTicker(FrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopped:
			return
		case <-ticker.C:
		}

		n, err := c.src.ReadPCM(pcm)
		if err == io.EOF {
			c.log.Info("capture drained")
			return
		}
		if err != nil {
			c.log.Error("read capture source", "error", err)
			return
		}
		if n < len(pcm) {
			// Pad a short final frame with silence.
			for i := n; i < len(pcm); i++ {
				pcm[i] = 0
			}
		}

		size, err := c.enc.Encode(pcm, buf)
		if err != nil {
			c.log.Error("encode frame", "error", err)
			continue
		}

		frame := append([]byte(nil), buf[:size]...)
		if c.onFrame != nil {
			c.onFrame(frame)
			continue
		}
		if err := c.track.WriteSample(media.Sample{
			Data:     frame,
			Duration: FrameDuration,
		}); err != nil {
			c.log.Error("write sample", "error", err)
		}
	}
}

// Stop halts the pump and closes the source. Safe to call more than
// once and on a never-started capture.
func (c *Capture) Stop() {
	select {
	case <-c.stopped:
		return
	default:
		close(c.stopped)
	}
	if err := c.src.Close(); err != nil {
		c.log.Error("close capture source", "error", err)
	}
}

// Stopped reports whether Stop has been called.
func (c *Capture) Stopped() bool {
	select {
	case <-c.stopped:
		return true
	default:
		return false
	}
}
