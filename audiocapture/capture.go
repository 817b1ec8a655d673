// Package audiocapture acquires meeting and microphone audio as float32 PCM
// tracks and mixes them into one stream for transcription.
package audiocapture

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrPermissionDenied is returned when the platform refuses access to a source.
	ErrPermissionDenied = errors.New("audiocapture: permission denied")

	// ErrNoMediaAvailable is returned when no matching capture device exists.
	ErrNoMediaAvailable = errors.New("audiocapture: no media available")

	// ErrUnsupported is returned when no capture backend is usable on this platform.
	ErrUnsupported = errors.New("audiocapture: unsupported platform")
)

// AudioHandler receives mono float32 samples in the range [-1, 1].
// The slice is only valid for the duration of the call.
type AudioHandler func(samples []float32)

// Track is a live audio source.
type Track interface {
	// Label is a human readable name for logs.
	Label() string

	// SampleRate is the rate of delivered samples in Hz.
	SampleRate() int

	// Attach registers a handler and returns a func that removes it.
	Attach(h AudioHandler) (detach func())

	// Stop ends the source. Safe to call more than once.
	Stop() error

	// Done is closed once the source has ended, whether stopped or not.
	Done() <-chan struct{}
}

// Constraints are the processing options requested for a microphone.
type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	SampleRate       int
}

// DefaultConstraints returns the microphone options used for meetings.
func DefaultConstraints() Constraints {
	return Constraints{
		EchoCancellation: true,
		NoiseSuppression: true,
		SampleRate:       16000,
	}
}

// DisplayCapture is the result of a meeting audio request.
type DisplayCapture struct {
	Tracks []Track

	ended chan struct{}
	once  sync.Once
}

// NewDisplayCapture wraps tracks. Ended fires when every track has ended on
// its own or Stop is called.
func NewDisplayCapture(tracks ...Track) *DisplayCapture {
	d := &DisplayCapture{Tracks: tracks, ended: make(chan struct{})}
	if len(tracks) == 0 {
		return d
	}
	go func() {
		for _, t := range tracks {
			<-t.Done()
		}
		d.markEnded()
	}()
	return d
}

// Ended is closed when the display capture stops.
func (d *DisplayCapture) Ended() <-chan struct{} {
	return d.ended
}

// HasAudio reports whether the capture carries at least one audio track.
func (d *DisplayCapture) HasAudio() bool {
	return len(d.Tracks) > 0
}

// Stop ends every track.
func (d *DisplayCapture) Stop() error {
	var errs []error
	for _, t := range d.Tracks {
		if err := t.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	d.markEnded()
	return errors.Join(errs...)
}

func (d *DisplayCapture) markEnded() {
	d.once.Do(func() { close(d.ended) })
}

// Acquirer obtains capture sources. Calls may block until the platform
// answers and honour context cancellation.
type Acquirer interface {
	AcquireDisplay(ctx context.Context) (*DisplayCapture, error)
	AcquireMicrophone(ctx context.Context, c Constraints) (Track, error)
}

// handlers is a fan-out list of AudioHandlers.
type handlers struct {
	mu   sync.RWMutex
	next int
	m    map[int]AudioHandler
}

func (h *handlers) add(fn AudioHandler) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.m == nil {
		h.m = make(map[int]AudioHandler)
	}
	id := h.next
	h.next++
	h.m[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.m, id)
			h.mu.Unlock()
		})
	}
}

func (h *handlers) emit(samples []float32) {
	h.mu.RLock()
	fns := make([]AudioHandler, 0, len(h.m))
	for _, fn := range h.m {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(samples)
	}
}
