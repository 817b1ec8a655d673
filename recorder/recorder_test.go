package recorder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jarwiz-ai/jarwiz/audiocapture"
)

type chunkSink struct {
	mu     sync.Mutex
	chunks [][]byte
}

func (s *chunkSink) handle(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunk)
}

func (s *chunkSink) joined() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Join(s.chunks, nil)
}

func TestRecorder_WAVStream(t *testing.T) {
	track := audiocapture.NewFeedTrack("mic", 16000)
	r := New(Options{Interval: 10 * time.Millisecond})

	if r.State() != StateInactive {
		t.Fatalf("State() = %q, want inactive", r.State())
	}

	var sink chunkSink
	if err := r.Start(track, sink.handle); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.State() != StateRecording {
		t.Fatalf("State() = %q, want recording", r.State())
	}
	if r.MimeType() != MimeWAV {
		t.Errorf("MimeType() = %q, want %q", r.MimeType(), MimeWAV)
	}
	if err := r.Start(track, sink.handle); !errors.Is(err, ErrRecording) {
		t.Errorf("second Start = %v, want ErrRecording", err)
	}

	track.Feed([]float32{0.5, -0.5})
	time.Sleep(30 * time.Millisecond)
	track.Feed([]float32{1})

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if r.State() != StateInactive {
		t.Errorf("State() = %q after Stop, want inactive", r.State())
	}

	// Samples fed after Stop are dropped.
	track.Feed([]float32{0.1})

	data := sink.joined()
	if len(data) != 44+3*2 {
		t.Fatalf("stream is %d bytes, want %d", len(data), 44+3*2)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Errorf("missing RIFF/WAVE header: %q", data[:12])
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
	pcm := data[44:]
	want := []int16{16384, -16384, 32767}
	for i, w := range want {
		got := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		if d := got - w; d < -1 || d > 1 {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}

func TestRecorder_OggOpus(t *testing.T) {
	track := audiocapture.NewFeedTrack("mic", 48000)
	r := New(Options{Interval: 10 * time.Millisecond, PreferOpus: true})

	var sink chunkSink
	if err := r.Start(track, sink.handle); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.MimeType() != MimeOggOpus {
		t.Fatalf("MimeType() = %q, want %q", r.MimeType(), MimeOggOpus)
	}

	// 50 ms of a quiet tone, not a multiple of the frame size.
	samples := make([]float32, 2400)
	for i := range samples {
		samples[i] = float32(i%48) / 480
	}
	track.Feed(samples)

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	data := sink.joined()
	if !bytes.HasPrefix(data, []byte("OggS")) {
		t.Fatalf("stream does not start with an Ogg page")
	}
	if !bytes.Contains(data, []byte("OpusHead")) {
		t.Error("stream has no OpusHead header")
	}
}

func TestNewEncoder_FallsBackToWAV(t *testing.T) {
	enc, err := NewEncoder(44100, true)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	if enc.MimeType() != MimeWAV {
		t.Errorf("MimeType() = %q, want %q", enc.MimeType(), MimeWAV)
	}
}

func TestEncoder_WriteAfterClose(t *testing.T) {
	tests := []struct {
		name       string
		preferOpus bool
		mime       string
	}{
		{"wav", false, MimeWAV},
		{"ogg opus", true, MimeOggOpus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewEncoder(48000, tt.preferOpus)
			if err != nil {
				t.Fatalf("NewEncoder: %v", err)
			}
			if enc.MimeType() != tt.mime {
				t.Fatalf("MimeType() = %q, want %q", enc.MimeType(), tt.mime)
			}
			if err := enc.Write(make([]float32, 1000)); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if _, err := enc.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			if err := enc.Write(make([]float32, 2000)); err != nil {
				t.Errorf("Write after Close error = %v, want nil", err)
			}
			if b, err := enc.Flush(); err != nil || len(b) != 0 {
				t.Errorf("Flush after Close = %d bytes, %v; want 0 bytes, nil", len(b), err)
			}
			if b, err := enc.Close(); err != nil || len(b) != 0 {
				t.Errorf("second Close = %d bytes, %v; want 0 bytes, nil", len(b), err)
			}
		})
	}
}

func TestRecorder_NilHandler(t *testing.T) {
	r := New(DefaultOptions())
	if err := r.Start(audiocapture.NewFeedTrack("mic", 48000), nil); err == nil {
		t.Fatal("Start with nil handler: want error")
	}
}

func TestFloatToPCM16(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32767},
		{2, 32767},
		{-3, -32767},
	}
	for _, tt := range tests {
		if got := floatToPCM16(tt.in); got != tt.want {
			t.Errorf("floatToPCM16(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
