package audiocapture

import (
	"io"
	"sync"
)

// Mix combines meeting audio with the microphone. With no meeting tracks it
// returns mic unchanged and a nil closer. Otherwise the returned track emits
// the sum of all sources, paced by the microphone, and the closer detaches
// the mixer from its sources without stopping them.
func Mix(tabTracks []Track, mic Track) (Track, io.Closer) {
	if len(tabTracks) == 0 {
		return mic, nil
	}

	m := &mixer{
		mic:    mic,
		queues: make([]*sampleQueue, len(tabTracks)),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	for i, t := range tabTracks {
		q := newSampleQueue(mic.SampleRate())
		m.queues[i] = q
		m.detach = append(m.detach, t.Attach(q.push))
	}
	m.detach = append(m.detach, mic.Attach(m.onMic))

	go func() {
		defer close(m.done)
		select {
		case <-mic.Done():
		case <-m.closed:
		}
	}()
	return m, m
}

type mixer struct {
	mic    Track
	queues []*sampleQueue
	detach []func()

	handlers handlers

	mu  sync.Mutex
	out []float32

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

func (m *mixer) Label() string   { return "mix(" + m.mic.Label() + ")" }
func (m *mixer) SampleRate() int { return m.mic.SampleRate() }

func (m *mixer) Attach(h AudioHandler) func() {
	return m.handlers.add(h)
}

func (m *mixer) Done() <-chan struct{} {
	return m.done
}

// Stop releases the mixing graph. The microphone track is stopped by its owner.
func (m *mixer) Stop() error {
	return m.Close()
}

// Close detaches from every source.
func (m *mixer) Close() error {
	m.closeOnce.Do(func() {
		for _, d := range m.detach {
			d()
		}
		close(m.closed)
	})
	return nil
}

func (m *mixer) onMic(samples []float32) {
	m.mu.Lock()
	if cap(m.out) < len(samples) {
		m.out = make([]float32, len(samples))
	}
	out := m.out[:len(samples)]
	copy(out, samples)
	for _, q := range m.queues {
		q.addInto(out)
	}
	for i, s := range out {
		out[i] = clamp(s)
	}
	m.mu.Unlock()

	m.handlers.emit(out)
}

func clamp(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

// sampleQueue is a bounded FIFO of samples. When full the oldest samples
// are overwritten.
type sampleQueue struct {
	mu     sync.Mutex
	data   []float32
	start  int
	filled int
}

func newSampleQueue(size int) *sampleQueue {
	if size <= 0 {
		size = 48000
	}
	return &sampleQueue{data: make([]float32, size)}
}

func (q *sampleQueue) push(samples []float32) {
	q.mu.Lock()
	defer q.mu.Unlock()

	size := len(q.data)
	for _, s := range samples {
		q.data[(q.start+q.filled)%size] = s
		if q.filled < size {
			q.filled++
		} else {
			q.start = (q.start + 1) % size
		}
	}
}

// addInto adds queued samples onto dst, consuming at most len(dst).
// Missing samples count as silence.
func (q *sampleQueue) addInto(dst []float32) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := min(len(dst), q.filled)
	size := len(q.data)
	for i := 0; i < n; i++ {
		dst[i] += q.data[(q.start+i)%size]
	}
	q.start = (q.start + n) % size
	q.filled -= n
}

func (q *sampleQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.filled
}
