package audiocapture

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// FFmpegConfig configures the ffmpeg capture backend.
type FFmpegConfig struct {
	Path             string // ffmpeg binary, default "ffmpeg"
	InputFormat      string // avfoundation, pulse, dshow...
	DisplayDevice    string // loopback or monitor device carrying meeting audio
	MicrophoneDevice string
	SampleRate       int // rate delivered to handlers, default 48000
}

// DefaultFFmpegConfig returns device defaults for the running platform.
func DefaultFFmpegConfig() FFmpegConfig {
	cfg := FFmpegConfig{Path: "ffmpeg", SampleRate: 48000}
	switch runtime.GOOS {
	case "darwin":
		cfg.InputFormat = "avfoundation"
		cfg.DisplayDevice = ":BlackHole 2ch"
		cfg.MicrophoneDevice = ":default"
	case "linux":
		cfg.InputFormat = "pulse"
		cfg.DisplayDevice = "@DEFAULT_MONITOR@"
		cfg.MicrophoneDevice = "default"
	case "windows":
		cfg.InputFormat = "dshow"
		cfg.DisplayDevice = "audio=Stereo Mix"
		cfg.MicrophoneDevice = "audio=Microphone"
	}
	return cfg
}

// FFmpeg acquires audio by running one ffmpeg process per track and reading
// raw f32le PCM from its stdout.
type FFmpeg struct {
	cfg FFmpegConfig
}

// NewFFmpeg creates the ffmpeg backend. Zero fields fall back to platform defaults.
func NewFFmpeg(cfg FFmpegConfig) (*FFmpeg, error) {
	def := DefaultFFmpegConfig()
	if cfg.Path == "" {
		cfg.Path = def.Path
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = def.InputFormat
	}
	if cfg.DisplayDevice == "" {
		cfg.DisplayDevice = def.DisplayDevice
	}
	if cfg.MicrophoneDevice == "" {
		cfg.MicrophoneDevice = def.MicrophoneDevice
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.InputFormat == "" {
		return nil, ErrUnsupported
	}
	return &FFmpeg{cfg: cfg}, nil
}

// CheckFFmpeg verifies that the ffmpeg binary can be found.
func (f *FFmpeg) CheckFFmpeg() error {
	if _, err := exec.LookPath(f.cfg.Path); err != nil {
		return fmt.Errorf("%w: ffmpeg not found at %q", ErrUnsupported, f.cfg.Path)
	}
	return nil
}

// AcquireDisplay starts capturing meeting audio from the loopback device.
func (f *FFmpeg) AcquireDisplay(ctx context.Context) (*DisplayCapture, error) {
	t, err := f.start(ctx, "display", f.cfg.DisplayDevice, nil)
	if err != nil {
		return nil, fmt.Errorf("acquire display audio: %w", err)
	}
	return NewDisplayCapture(t), nil
}

// AcquireMicrophone starts capturing the microphone.
func (f *FFmpeg) AcquireMicrophone(ctx context.Context, c Constraints) (Track, error) {
	t, err := f.start(ctx, "microphone", f.cfg.MicrophoneDevice, micFilters(c))
	if err != nil {
		return nil, fmt.Errorf("acquire microphone: %w", err)
	}
	return t, nil
}

// micFilters maps constraints to an ffmpeg filter chain.
// ffmpeg has no generic echo canceller, so that constraint is only logged.
func micFilters(c Constraints) []string {
	var filters []string
	if c.NoiseSuppression {
		filters = append(filters, "afftdn")
	}
	if c.EchoCancellation {
		slog.Debug("echo cancellation not available in ffmpeg backend")
	}
	return filters
}

func (f *FFmpeg) args(device string, filters []string) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-f", f.cfg.InputFormat,
		"-i", device,
	}
	if len(filters) > 0 {
		args = append(args, "-af", strings.Join(filters, ","))
	}
	return append(args,
		"-ac", "1",
		"-ar", strconv.Itoa(f.cfg.SampleRate),
		"-f", "f32le",
		"pipe:1",
	)
}

func (f *FFmpeg) start(ctx context.Context, label, device string, filters []string) (*processTrack, error) {
	cmd := exec.Command(f.cfg.Path, f.args(device, filters)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr := &tailBuffer{max: 4096}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	t := &processTrack{
		label:      label,
		sampleRate: f.cfg.SampleRate,
		cmd:        cmd,
		done:       make(chan struct{}),
		ready:      make(chan struct{}),
	}
	go t.run(stdout, stderr)

	select {
	case <-t.ready:
		slog.Info("capture started", "track", label, "device", device)
		return t, nil
	case <-t.done:
		return nil, classify(stderr.String(), t.waitErr)
	case <-ctx.Done():
		t.Stop()
		<-t.done
		return nil, ctx.Err()
	}
}

// classify maps ffmpeg diagnostics to acquisition errors.
func classify(stderr string, err error) error {
	msg := strings.TrimSpace(stderr)
	if msg == "" && err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = "capture ended before producing audio"
	}

	lower := strings.ToLower(msg)
	for _, s := range []string{"permission denied", "not authorized", "not permitted", "access denied", "access is denied"} {
		if strings.Contains(lower, s) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, msg)
		}
	}
	return fmt.Errorf("%w: %s", ErrNoMediaAvailable, msg)
}

// processTrack is a Track fed by an ffmpeg child process.
type processTrack struct {
	label      string
	sampleRate int
	cmd        *exec.Cmd

	handlers handlers

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	waitErr   error

	stopOnce sync.Once
}

func (t *processTrack) Label() string   { return t.label }
func (t *processTrack) SampleRate() int { return t.sampleRate }

func (t *processTrack) Attach(h AudioHandler) func() {
	return t.handlers.add(h)
}

func (t *processTrack) Done() <-chan struct{} {
	return t.done
}

// Stop kills the ffmpeg process. Remaining output is discarded.
func (t *processTrack) Stop() error {
	var err error
	t.stopOnce.Do(func() {
		if t.cmd.Process != nil {
			if kerr := t.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
				err = fmt.Errorf("stop %s capture: %w", t.label, kerr)
			}
		}
	})
	return err
}

func (t *processTrack) run(stdout io.Reader, stderr *tailBuffer) {
	defer close(t.done)

	readPCM(stdout, func(samples []float32) {
		t.readyOnce.Do(func() { close(t.ready) })
		t.handlers.emit(samples)
	})

	t.waitErr = t.cmd.Wait()
	if t.waitErr != nil {
		slog.Debug("capture process exited", "track", t.label, "error", t.waitErr, "stderr", stderr.String())
	}
}

// readPCM decodes little-endian float32 samples until r is exhausted.
func readPCM(r io.Reader, fn func([]float32)) {
	buf := make([]byte, 4096)
	samples := make([]float32, len(buf)/4)
	rem := 0

	for {
		n, err := r.Read(buf[rem:])
		n += rem
		usable := n - n%4
		if usable > 0 {
			out := samples[:usable/4]
			for i := range out {
				out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
			}
			fn(out)
		}
		rem = copy(buf, buf[usable:n])
		if err != nil {
			return
		}
	}
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Write(p)
	if over := b.buf.Len() - b.max; over > 0 {
		b.buf.Next(over)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
