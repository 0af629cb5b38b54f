package audio

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WAVFormat is the subset of the RIFF fmt chunk the capture layer
// cares about.
type WAVFormat struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// readWAVHeader consumes the RIFF header and chunks up to the start of
// the data chunk, leaving r positioned at the first PCM sample.
func readWAVHeader(r io.Reader) (WAVFormat, error) {
	var format WAVFormat

	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err != nil {
		return format, fmt.Errorf("read RIFF header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return format, fmt.Errorf("not a RIFF/WAVE file")
	}

	sawFmt := false
	for {
		chunk := make([]byte, 8)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return format, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return format, fmt.Errorf("read fmt chunk: %w", err)
			}
			if len(body) < 16 {
				return format, fmt.Errorf("fmt chunk too short: %d bytes", len(body))
			}
			audioFormat := binary.LittleEndian.Uint16(body[0:2])
			if audioFormat != 1 {
				return format, fmt.Errorf("unsupported WAV encoding %d, want PCM", audioFormat)
			}
			format.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			format.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			format.BitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			if format.BitsPerSample != 16 {
				return format, fmt.Errorf("unsupported bit depth %d, want 16", format.BitsPerSample)
			}
			sawFmt = true
		case "data":
			if !sawFmt {
				return format, fmt.Errorf("data chunk before fmt chunk")
			}
			return format, nil
		default:
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				return format, fmt.Errorf("skip %q chunk: %w", id, err)
			}
		}
	}
}
