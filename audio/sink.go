package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
)

const samplesPerFrame = 960 // 20ms at 48kHz

// OggWriter is the subset of oggwriter.OggWriter the sink needs,
// split out so tests can substitute a recorder.
type OggWriter interface {
	WriteRTP(*rtp.Packet) error
	Close() error
}

// Sink writes the remote translated-audio track into an ogg stream.
// This path is outside the control-event pipeline: its only failure
// reporting is the track-ended notification.
type Sink struct {
	log     *log.Logger
	writer  OggWriter
	lastTS  uint32
	onEnded func()
}

func NewSink(w io.Writer, logger *log.Logger) (*Sink, error) {
	ogg, err := oggwriter.NewWith(w, 48000, 2)
	if err != nil {
		return nil, fmt.Errorf("create ogg writer: %w", err)
	}
	return &Sink{log: logger, writer: ogg}, nil
}

func NewSinkWithWriter(w OggWriter, logger *log.Logger) *Sink {
	return &Sink{log: logger, writer: w}
}

// OnEnded registers a callback fired once when the remote track ends.
func (s *Sink) OnEnded(fn func()) {
	s.onEnded = fn
}

// Consume drains the remote track until it ends. Run on its own
// goroutine by the transport's track handler.
func (s *Sink) Consume(track *webrtc.TrackRemote) {
	s.log.Info("remote track", "codec", track.Codec().MimeType, "ssrc", track.SSRC())
	for {
		packet, _, err := track.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Error("read remote track", "error", err)
			}
			s.ended()
			return
		}
		if err := s.WritePacket(packet); err != nil {
			s.log.Error("write remote packet", "error", err)
		}
	}
}

// WritePacket writes one RTP packet, inserting silent frames to cover
// any timestamp gap so the ogg timeline stays continuous.
func (s *Sink) WritePacket(packet *rtp.Packet) error {
	if s.lastTS != 0 {
		gap := int64(packet.Timestamp) - int64(s.lastTS)
		if gap > samplesPerFrame {
			if err := s.insertSilence(gap); err != nil {
				return err
			}
		}
	}

	if err := s.writer.WriteRTP(packet); err != nil {
		return fmt.Errorf("write opus packet: %w", err)
	}
	s.lastTS = packet.Timestamp
	return nil
}

func (s *Sink) insertSilence(gap int64) error {
	count := gap / samplesPerFrame
	s.log.Debug("insert silence", "frames", count, "gap", gap)
	for j := int64(0); j < count; j++ {
		silent := &rtp.Packet{
			Header: rtp.Header{
				Timestamp: s.lastTS + uint32(j*samplesPerFrame),
			},
			Payload: []byte{0xf8, 0xff, 0xfe},
		}
		if err := s.writer.WriteRTP(silent); err != nil {
			return fmt.Errorf("write silent packet: %w", err)
		}
	}
	return nil
}

func (s *Sink) Close() error {
	return s.writer.Close()
}

func (s *Sink) ended() {
	s.log.Info("remote track ended")
	if s.onEnded != nil {
		s.onEnded()
		s.onEnded = nil
	}
}
