package audio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// ReaderSource reads raw little-endian PCM16 from an io.Reader, e.g.
// a pipe from a system recorder.
type ReaderSource struct {
	r io.Reader
	c io.Closer
}

func NewReaderSource(r io.Reader) *ReaderSource {
	src := &ReaderSource{r: bufio.NewReader(r)}
	if c, ok := r.(io.Closer); ok {
		src.c = c
	}
	return src
}

func (s *ReaderSource) ReadPCM(buf []int16) (int, error) {
	raw := make([]byte, len(buf)*2)
	n, err := io.ReadFull(s.r, raw)
	if err == io.ErrUnexpectedEOF {
		err = nil
	} else if err != nil {
		return 0, err
	}
	samples := n / 2
	for i := 0; i < samples; i++ {
		buf[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	if samples == 0 {
		return 0, io.EOF
	}
	return samples, err
}

func (s *ReaderSource) Close() error {
	if s.c != nil {
		return s.c.Close()
	}
	return nil
}

// OpenDevice opens a capture source. "-" means raw PCM on stdin; a
// .wav path is parsed for format and validated against opts; anything
// else is treated as raw PCM16. Failure to open maps to an audio-kind
// error at the session layer.
func OpenDevice(path string, opts Options) (Source, error) {
	if path == "-" {
		return NewReaderSource(os.Stdin), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio device %q: %w", path, err)
	}

	if isWAVPath(path) {
		format, err := readWAVHeader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("parse %q: %w", path, err)
		}
		if format.SampleRate != opts.SampleRate || format.Channels != opts.Channels {
			f.Close()
			return nil, fmt.Errorf(
				"%q is %dHz/%dch, capture wants %dHz/%dch",
				path, format.SampleRate, format.Channels,
				opts.SampleRate, opts.Channels,
			)
		}
	}

	return NewReaderSource(f), nil
}

func isWAVPath(path string) bool {
	return len(path) > 4 && path[len(path)-4:] == ".wav"
}
