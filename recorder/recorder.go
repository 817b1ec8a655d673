// Package recorder turns a live audio track into a sequence of encoded
// chunks, one per interval, ready to be streamed to a transcription service.
package recorder

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jarwiz-ai/jarwiz/audiocapture"
)

// State mirrors the recording state of the recorder.
type State string

const (
	StateInactive  State = "inactive"
	StateRecording State = "recording"
)

// DefaultInterval is the chunk interval used for live transcription.
const DefaultInterval = 250 * time.Millisecond

var (
	// ErrRecording is returned by Start when the recorder is already running.
	ErrRecording = errors.New("recorder: already recording")

	// ErrUnsupportedFormat is returned when no encoder can handle the track.
	ErrUnsupportedFormat = errors.New("recorder: unsupported format")
)

// Encoder turns PCM into a container byte stream.
type Encoder interface {
	// MimeType names the produced container and codec.
	MimeType() string

	// Write encodes samples. Output is buffered until Flush.
	Write(samples []float32) error

	// Flush returns the bytes produced since the previous Flush.
	Flush() ([]byte, error)

	// Close encodes any pending samples and returns the remaining bytes.
	// Writes after Close are dropped, since a track handler can still be
	// running when the recorder stops.
	Close() ([]byte, error)
}

// ChunkHandler receives each encoded chunk. Chunks may be empty.
type ChunkHandler func(chunk []byte)

// Options configures a Recorder.
type Options struct {
	Interval time.Duration

	// PreferOpus selects Ogg/Opus when the sample rate allows it.
	PreferOpus bool
}

// DefaultOptions returns the live transcription settings.
func DefaultOptions() Options {
	return Options{Interval: DefaultInterval, PreferOpus: true}
}

// Recorder emits encoded chunks of a track at a fixed interval.
type Recorder struct {
	opts Options

	mu      sync.Mutex
	state   State
	enc     Encoder
	detach  func()
	onChunk ChunkHandler
	stop    chan struct{}
	stopped chan struct{}
}

// New creates an inactive recorder.
func New(opts Options) *Recorder {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Recorder{opts: opts, state: StateInactive}
}

// NewEncoder picks the preferred encoder for the rate, falling back to WAV.
func NewEncoder(sampleRate int, preferOpus bool) (Encoder, error) {
	if preferOpus {
		enc, err := NewOggOpusEncoder(sampleRate, 1)
		if err == nil {
			return enc, nil
		}
		slog.Debug("opus unavailable, falling back to wav", "sample_rate", sampleRate, "error", err)
	}
	return NewWAVEncoder(sampleRate, 1)
}

// State returns the current recording state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// MimeType returns the container of the running encoder, or "".
func (r *Recorder) MimeType() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enc == nil {
		return ""
	}
	return r.enc.MimeType()
}

// Start attaches to track and calls onChunk every interval until Stop.
func (r *Recorder) Start(track audiocapture.Track, onChunk ChunkHandler) error {
	if onChunk == nil {
		return errors.New("recorder: nil chunk handler")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateRecording {
		return ErrRecording
	}

	enc, err := NewEncoder(track.SampleRate(), r.opts.PreferOpus)
	if err != nil {
		return fmt.Errorf("create encoder: %w", err)
	}

	r.enc = enc
	r.onChunk = onChunk
	r.stop = make(chan struct{})
	r.stopped = make(chan struct{})
	r.detach = track.Attach(func(samples []float32) {
		if err := enc.Write(samples); err != nil {
			slog.Error("encode audio", "error", err)
		}
	})
	r.state = StateRecording

	go r.loop(enc, onChunk, r.stop, r.stopped)

	slog.Info("recorder started", "mime", enc.MimeType(), "interval", r.opts.Interval)
	return nil
}

func (r *Recorder) loop(enc Encoder, onChunk ChunkHandler, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			chunk, err := enc.Flush()
			if err != nil {
				slog.Error("flush audio chunk", "error", err)
				continue
			}
			onChunk(chunk)
		}
	}
}

// Stop detaches from the track, delivers the final chunk and returns the
// recorder to inactive. Calling Stop while inactive does nothing.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return nil
	}
	r.detach()
	close(r.stop)
	stopped := r.stopped
	enc, onChunk := r.enc, r.onChunk
	r.state = StateInactive
	r.mu.Unlock()

	<-stopped

	chunk, err := enc.Close()
	if err != nil {
		return fmt.Errorf("close encoder: %w", err)
	}
	onChunk(chunk)

	slog.Info("recorder stopped")
	return nil
}
