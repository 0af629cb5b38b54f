package audio

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
)

// buildWAV assembles a minimal RIFF/WAVE byte stream.
func buildWAV(audioFormat uint16, channels uint16, sampleRate uint32, bits uint16, extraChunks bool, data []byte) []byte {
	var fmtChunk bytes.Buffer
	binary.Write(&fmtChunk, binary.LittleEndian, audioFormat)
	binary.Write(&fmtChunk, binary.LittleEndian, channels)
	binary.Write(&fmtChunk, binary.LittleEndian, sampleRate)
	binary.Write(&fmtChunk, binary.LittleEndian, sampleRate*uint32(channels)*uint32(bits)/8) // byte rate
	binary.Write(&fmtChunk, binary.LittleEndian, channels*bits/8)                            // block align
	binary.Write(&fmtChunk, binary.LittleEndian, bits)

	var body bytes.Buffer
	body.WriteString("WAVE")
	body.WriteString("fmt ")
	binary.Write(&body, binary.LittleEndian, uint32(fmtChunk.Len()))
	body.Write(fmtChunk.Bytes())
	if extraChunks {
		body.WriteString("LIST")
		binary.Write(&body, binary.LittleEndian, uint32(4))
		body.WriteString("INFO")
	}
	body.WriteString("data")
	binary.Write(&body, binary.LittleEndian, uint32(len(data)))
	body.Write(data)

	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func TestReadWAVHeader(t *testing.T) {
	samples := []byte{0x01, 0x00, 0x02, 0x00}
	raw := buildWAV(1, 1, 48000, 16, false, samples)

	r := bytes.NewReader(raw)
	format, err := readWAVHeader(r)
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if format.SampleRate != 48000 || format.Channels != 1 || format.BitsPerSample != 16 {
		t.Fatalf("format = %+v", format)
	}

	// Reader must be positioned at the first sample.
	rest, _ := io.ReadAll(r)
	if !bytes.Equal(rest, samples) {
		t.Fatalf("remaining = %v, want %v", rest, samples)
	}
}

func TestReadWAVHeaderSkipsUnknownChunks(t *testing.T) {
	raw := buildWAV(1, 2, 44100, 16, true, []byte{0, 0})
	format, err := readWAVHeader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if format.SampleRate != 44100 || format.Channels != 2 {
		t.Fatalf("format = %+v", format)
	}
}

func TestReadWAVHeaderRejects(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
	}{
		{"truncated", []byte("RIFF")},
		{"not riff", append([]byte("JUNKxxxxWAVE"), 0)},
		{"float encoding", buildWAV(3, 1, 48000, 32, false, nil)},
		{"8 bit", buildWAV(1, 1, 48000, 8, false, nil)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := readWAVHeader(bytes.NewReader(tc.raw)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestReaderSourcePartialRead(t *testing.T) {
	// 3 samples of raw PCM16, read into a 4-sample buffer.
	raw := []byte{0x34, 0x12, 0x00, 0x80, 0xff, 0x7f}
	src := NewReaderSource(bytes.NewReader(raw))

	buf := make([]int16, 4)
	n, err := src.ReadPCM(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 3 {
		t.Fatalf("n = %d, want 3", n)
	}
	want := []int16{0x1234, -32768, 32767}
	for i, s := range want {
		if buf[i] != s {
			t.Fatalf("sample %d = %d, want %d", i, buf[i], s)
		}
	}

	if _, err := src.ReadPCM(buf); err != io.EOF {
		t.Fatalf("second read err = %v, want EOF", err)
	}
}
