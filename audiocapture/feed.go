package audiocapture

import (
	"io"
	"sync"
)

// FeedTrack is a Track whose samples are pushed by the caller.
type FeedTrack struct {
	label      string
	sampleRate int

	handlers handlers

	// start, when set, runs once on the first Attach.
	start     func()
	startOnce sync.Once

	once sync.Once
	done chan struct{}
}

// NewFeedTrack creates a track that delivers whatever is passed to Feed.
func NewFeedTrack(label string, sampleRate int) *FeedTrack {
	return &FeedTrack{label: label, sampleRate: sampleRate, done: make(chan struct{})}
}

// NewReaderTrack creates a track that decodes little-endian float32 PCM from
// r and ends when r is exhausted. Reading starts on the first Attach so no
// samples are lost before a consumer is listening.
func NewReaderTrack(label string, sampleRate int, r io.Reader) *FeedTrack {
	t := NewFeedTrack(label, sampleRate)
	t.start = func() {
		go func() {
			readPCM(r, t.Feed)
			t.Stop()
		}()
	}
	return t
}

func (t *FeedTrack) Label() string   { return t.label }
func (t *FeedTrack) SampleRate() int { return t.sampleRate }

func (t *FeedTrack) Attach(h AudioHandler) func() {
	detach := t.handlers.add(h)
	if t.start != nil {
		t.startOnce.Do(t.start)
	}
	return detach
}

// Feed delivers samples to attached handlers. No-op once stopped.
func (t *FeedTrack) Feed(samples []float32) {
	select {
	case <-t.done:
		return
	default:
	}
	t.handlers.emit(samples)
}

func (t *FeedTrack) Stop() error {
	t.once.Do(func() { close(t.done) })
	return nil
}

func (t *FeedTrack) Done() <-chan struct{} {
	return t.done
}
