// Package livesession runs one live meeting transcription: it owns the
// meeting and microphone captures, the recorder, and the transcription
// socket, and turns service events into transcript state.
package livesession

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jarwiz-ai/jarwiz/audiocapture"
	"github.com/jarwiz-ai/jarwiz/deepgram"
	"github.com/jarwiz-ai/jarwiz/internal/types"
	"github.com/jarwiz-ai/jarwiz/recorder"
	"github.com/jarwiz-ai/jarwiz/transcript"
)

// Status labels shown to the user.
const (
	StatusNotConnected     = "Not Connected"
	StatusRequestingShare  = "Requesting screen share..."
	StatusConnected        = "Connected to meeting"
	StatusConnectingMic    = "Connecting microphone..."
	StatusTranscribing     = "Transcribing..."
	StatusConnectedMicOff  = "Connected to meeting (mic off)"
	MessageListening       = "Listening... transcription active!"
	MessageMicDisconnected = "Microphone disconnected"
	MessageConnectionError = "Connection error. Please try again."
)

// DefaultKeepAliveInterval keeps the transcription socket from idling out.
const DefaultKeepAliveInterval = 10 * time.Second

const closeStreamTimeout = 2 * time.Second

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("livesession: closed")

// Phase is the lifecycle phase of a session.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseConnecting Phase = "connecting"
	PhaseStreaming  Phase = "streaming"
	PhaseClosing    Phase = "closing"
)

// Transport is a transcription socket. *deepgram.Client implements it.
type Transport interface {
	Connect(ctx context.Context) error
	SendAudio(ctx context.Context, chunk []byte) error
	KeepAlive(ctx context.Context) error
	CloseStream(ctx context.Context) error
	IsOpen() bool
	Events() <-chan deepgram.Event
	Err() error
	Close() error
}

// Recorder chunks a track. *recorder.Recorder implements it.
type Recorder interface {
	Start(track audiocapture.Track, onChunk recorder.ChunkHandler) error
	Stop() error
	State() recorder.State
}

// Config wires a session to its collaborators.
type Config struct {
	Acquirer audiocapture.Acquirer

	// Dial returns a new, unconnected transport.
	Dial func() (Transport, error)

	// NewRecorder returns a fresh recorder per microphone pipeline.
	NewRecorder func() Recorder

	Constraints       audiocapture.Constraints
	KeepAliveInterval time.Duration
}

// pipeline is everything owned by one microphone connection.
type pipeline struct {
	mic       audiocapture.Track
	mixer     io.Closer
	transport Transport
	rec       Recorder

	cancel context.CancelFunc
	done   chan struct{} // closed when the event forwarder exits
}

// Session is the meeting transcription state machine.
type Session struct {
	cfg Config

	// opMu serializes lifecycle operations so that at most one socket and
	// one recorder exist at any time.
	opMu sync.Mutex

	mu      sync.Mutex
	phase   Phase
	state   types.SessionState
	display *audiocapture.DisplayCapture
	mic     *pipeline
	closed  bool
	pending []Update

	log *transcript.Log

	emitMu    sync.Mutex
	listeners listeners
}

// New creates an idle session.
func New(cfg Config) (*Session, error) {
	if cfg.Acquirer == nil {
		return nil, errors.New("livesession: acquirer is required")
	}
	if cfg.Dial == nil {
		return nil, errors.New("livesession: dial func is required")
	}
	if cfg.NewRecorder == nil {
		cfg.NewRecorder = func() Recorder { return recorder.New(recorder.DefaultOptions()) }
	}
	if cfg.Constraints == (audiocapture.Constraints{}) {
		cfg.Constraints = audiocapture.DefaultConstraints()
	}
	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = DefaultKeepAliveInterval
	}

	return &Session{
		cfg:   cfg,
		phase: PhaseIdle,
		state: types.SessionState{StatusLabel: StatusNotConnected},
		log:   transcript.NewLog(),
	}, nil
}

// State returns a snapshot of the view state.
func (s *Session) State() types.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Phase returns the lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Messages returns the transcript so far.
func (s *Session) Messages() []types.TranscriptMessage {
	return s.log.Messages()
}

// LatestSentence returns the last sentence extracted from a final result.
func (s *Session) LatestSentence() string {
	return s.log.Latest()
}

// ConnectToMeeting acquires meeting audio and then connects the microphone.
// A failed microphone connection leaves the meeting connected; its error is
// returned and recorded in the state.
func (s *Session) ConnectToMeeting(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mu.Unlock()

	if s.hasDisplay() {
		s.disconnectAll()
	}

	s.mu.Lock()
	s.phase = PhaseConnecting
	s.state.StatusLabel = StatusRequestingShare
	s.state.LastError = ""
	s.queueState()
	s.unlockAndFlush()

	display, err := s.cfg.Acquirer.AcquireDisplay(ctx)

	s.mu.Lock()
	if err != nil {
		slog.Error("connect to meeting", "error", err)
		s.phase = PhaseIdle
		s.state.StatusLabel = StatusNotConnected
		s.state.LastError = err.Error()
		s.queueState()
		s.unlockAndFlush()
		return err
	}
	if s.closed {
		s.mu.Unlock()
		display.Stop()
		return ErrClosed
	}
	s.display = display
	s.phase = PhaseStreaming
	s.state.ConnectedToMeeting = true
	s.state.PreviewActive = true
	s.state.StatusLabel = StatusConnected
	s.queueState()
	s.unlockAndFlush()

	go s.watchDisplay(display)

	if display.HasAudio() {
		slog.Info("connected to meeting", "audio_tracks", len(display.Tracks))
	} else {
		slog.Warn("connected to meeting without audio, transcribing the microphone only")
	}

	return s.connectMicrophone(ctx)
}

func (s *Session) watchDisplay(d *audiocapture.DisplayCapture) {
	<-d.Ended()

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	current := s.display == d
	s.mu.Unlock()
	if !current {
		return
	}
	slog.Info("meeting capture ended")
	s.disconnectAll()
}

func (s *Session) hasDisplay() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display != nil
}

// ConnectMicrophone starts a transcription pipeline. Any existing pipeline is
// torn down first. On failure the meeting connection is kept.
func (s *Session) ConnectMicrophone(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	return s.connectMicrophone(ctx)
}

// connectMicrophone requires opMu.
func (s *Session) connectMicrophone(ctx context.Context) error {
	s.disconnectMicrophone()

	s.mu.Lock()
	s.state.StatusLabel = StatusConnectingMic
	s.state.LastError = ""
	var tabs []audiocapture.Track
	if s.display != nil && s.display.HasAudio() {
		tabs = s.display.Tracks
	}
	s.queueState()
	s.unlockAndFlush()

	p, err := s.openPipeline(ctx, tabs)
	if err != nil {
		slog.Error("connect microphone", "error", err)
		s.micFailed(err.Error())
		return err
	}

	s.mu.Lock()
	s.mic = p
	if s.display == nil {
		s.phase = PhaseStreaming
	}
	s.state.MicConnected = true
	s.state.StatusLabel = StatusTranscribing
	s.queueState()
	s.queueMessage(s.log.AddSystem(MessageListening))
	s.unlockAndFlush()

	go s.forward(p)
	return nil
}

func (s *Session) openPipeline(ctx context.Context, tabs []audiocapture.Track) (*pipeline, error) {
	mic, err := s.cfg.Acquirer.AcquireMicrophone(ctx, s.cfg.Constraints)
	if err != nil {
		return nil, err
	}

	mixed, mixer := audiocapture.Mix(tabs, mic)
	if mixer != nil {
		slog.Info("audio mixed", "sources", len(tabs)+1)
	}

	release := func() {
		if mixer != nil {
			mixer.Close()
		}
		mic.Stop()
	}

	t, err := s.cfg.Dial()
	if err != nil {
		release()
		return nil, err
	}
	if err := t.Connect(ctx); err != nil {
		release()
		t.Close()
		slog.Error("open transcription socket", "error", err)
		return nil, errors.New(MessageConnectionError)
	}

	pctx, cancel := context.WithCancel(context.Background())
	rec := s.cfg.NewRecorder()
	err = rec.Start(mixed, func(chunk []byte) {
		if len(chunk) == 0 || !t.IsOpen() {
			return
		}
		if err := t.SendAudio(pctx, chunk); err != nil {
			slog.Debug("send audio chunk", "error", err)
		}
	})
	if err != nil {
		cancel()
		release()
		t.Close()
		return nil, err
	}

	go keepAlive(pctx, t, s.cfg.KeepAliveInterval)

	return &pipeline{
		mic:       mic,
		mixer:     mixer,
		transport: t,
		rec:       rec,
		cancel:    cancel,
		done:      make(chan struct{}),
	}, nil
}

func keepAlive(ctx context.Context, t Transport, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !t.IsOpen() {
				continue
			}
			if err := t.KeepAlive(ctx); err != nil {
				slog.Debug("send keep-alive", "error", err)
			}
		}
	}
}

// forward dispatches transport events one at a time until the socket closes.
func (s *Session) forward(p *pipeline) {
	defer close(p.done)

	for e := range p.transport.Events() {
		s.HandleEvent(e)
	}

	s.mu.Lock()
	remote := s.mic == p
	s.mu.Unlock()
	if remote {
		go s.remoteClosed(p)
	}
}

func (s *Session) remoteClosed(p *pipeline) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	current := s.mic == p
	s.mu.Unlock()
	if !current {
		return
	}

	err := p.transport.Err()
	slog.Info("transcription socket closed by remote", "error", err)
	s.teardown(p, false)

	s.mu.Lock()
	s.state.MicConnected = false
	s.state.CurrentPartialText = ""
	s.state.StatusLabel = s.idleStatus(StatusConnected)
	if s.display == nil {
		s.phase = PhaseIdle
	}
	if err != nil {
		s.state.LastError = MessageConnectionError
	}
	s.queueState()
	s.unlockAndFlush()
}

func (s *Session) micFailed(msg string) {
	s.mu.Lock()
	s.state.MicConnected = false
	s.state.StatusLabel = s.idleStatus(StatusConnected)
	s.state.LastError = msg
	s.queueState()
	s.unlockAndFlush()
}

// idleStatus returns the label for a session without a microphone.
// Requires mu.
func (s *Session) idleStatus(connected string) string {
	if s.display != nil {
		return connected
	}
	return StatusNotConnected
}

// DisconnectMicrophone tears down the microphone pipeline. Calling it with no
// pipeline changes nothing.
func (s *Session) DisconnectMicrophone() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.disconnectMicrophone()
}

// disconnectMicrophone requires opMu. It reports whether a pipeline existed.
func (s *Session) disconnectMicrophone() bool {
	s.mu.Lock()
	p := s.mic
	s.mu.Unlock()
	if p == nil {
		return false
	}

	s.teardown(p, true)

	s.mu.Lock()
	s.state.MicConnected = false
	s.state.CurrentPartialText = ""
	s.log.ClearPartial()
	s.state.StatusLabel = s.idleStatus(StatusConnectedMicOff)
	if s.display == nil {
		s.phase = PhaseIdle
	}
	s.queueState()
	s.queueMessage(s.log.AddSystem(MessageMicDisconnected))
	s.unlockAndFlush()
	return true
}

// teardown releases a pipeline in order: recorder, keep-alive, microphone,
// mixer, then the socket.
func (s *Session) teardown(p *pipeline, sendClose bool) {
	s.mu.Lock()
	if s.mic == p {
		s.mic = nil
	}
	s.mu.Unlock()

	if p.rec.State() != recorder.StateInactive {
		if err := p.rec.Stop(); err != nil {
			slog.Error("stop recorder", "error", err)
		}
	}
	p.cancel()
	if err := p.mic.Stop(); err != nil {
		slog.Error("stop microphone", "error", err)
	}
	if p.mixer != nil {
		if err := p.mixer.Close(); err != nil {
			slog.Error("close mixer", "error", err)
		}
	}
	if sendClose && p.transport.IsOpen() {
		ctx, cancel := context.WithTimeout(context.Background(), closeStreamTimeout)
		if err := p.transport.CloseStream(ctx); err != nil {
			slog.Debug("send close stream", "error", err)
		}
		cancel()
	}
	if err := p.transport.Close(); err != nil {
		slog.Debug("close transcription socket", "error", err)
	}
	<-p.done
}

// DisconnectAll disconnects the microphone and releases the meeting capture.
func (s *Session) DisconnectAll() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.disconnectAll()
}

// disconnectAll requires opMu.
func (s *Session) disconnectAll() {
	s.disconnectMicrophone()

	s.mu.Lock()
	display := s.display
	s.display = nil
	if display != nil {
		s.phase = PhaseClosing
	}
	s.mu.Unlock()

	if display != nil {
		if err := display.Stop(); err != nil {
			slog.Error("stop meeting capture", "error", err)
		}
	}

	s.mu.Lock()
	s.phase = PhaseIdle
	s.state.ConnectedToMeeting = false
	s.state.PreviewActive = false
	s.state.StatusLabel = StatusNotConnected
	s.queueState()
	s.unlockAndFlush()
}

// Close releases every resource. The session cannot be reused.
func (s *Session) Close() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.disconnectAll()
	return nil
}

// SetFullscreen records whether the meeting view is fullscreen.
func (s *Session) SetFullscreen(on bool) {
	s.mu.Lock()
	s.state.Fullscreen = on
	s.queueState()
	s.unlockAndFlush()
}

var (
	_ Transport = (*deepgram.Client)(nil)
	_ Recorder  = (*recorder.Recorder)(nil)
)
