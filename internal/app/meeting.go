package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jarwiz-ai/jarwiz/internal/types"
	"github.com/jarwiz-ai/jarwiz/livesession"
)

// ErrNoSession is returned by meeting operations before a session exists.
var ErrNoSession = errors.New("transcription is not configured")

// MeetingSession is the part of *livesession.Session the shell drives.
type MeetingSession interface {
	State() types.SessionState
	Messages() []types.TranscriptMessage
	LatestSentence() string
	ConnectToMeeting(ctx context.Context) error
	ConnectMicrophone(ctx context.Context) error
	DisconnectMicrophone()
	DisconnectAll()
	SetFullscreen(on bool)
	Subscribe(fn livesession.Listener) (unsubscribe func())
	Close() error
}

var _ MeetingSession = (*livesession.Session)(nil)

// MeetingAdapter owns the transcription session and forwards its updates
// to the frontend.
type MeetingAdapter struct {
	mu          sync.RWMutex
	session     MeetingSession
	unsubscribe func()
}

// Start attaches session. Stops any existing session first.
func (ma *MeetingAdapter) Start(session MeetingSession, emit Emitter) {
	ma.mu.Lock()
	defer ma.mu.Unlock()

	ma.stopLocked()
	ma.session = session
	ma.unsubscribe = session.Subscribe(func(u livesession.Update) {
		switch u.Kind {
		case livesession.UpdateState:
			emit.emit(EventMeetingState, u.State)
		case livesession.UpdateMessage:
			emit.emit(EventTranscriptMessage, u.Message)
		case livesession.UpdateLatestSentence:
			emit.emit(EventLatestSentence, u.Sentence)
		}
	})
}

// Stop closes the session and stops forwarding.
func (ma *MeetingAdapter) Stop() {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	ma.stopLocked()
}

func (ma *MeetingAdapter) stopLocked() {
	if ma.session != nil {
		if err := ma.session.Close(); err != nil {
			slog.Warn("close meeting session", "error", err)
		}
		ma.session = nil
	}
	if ma.unsubscribe != nil {
		ma.unsubscribe()
		ma.unsubscribe = nil
	}
}

// Session returns the running session or ErrNoSession.
func (ma *MeetingAdapter) Session() (MeetingSession, error) {
	ma.mu.RLock()
	defer ma.mu.RUnlock()
	if ma.session == nil {
		return nil, ErrNoSession
	}
	return ma.session, nil
}

// State returns the session state, or the idle state without a session.
func (ma *MeetingAdapter) State() types.SessionState {
	s, err := ma.Session()
	if err != nil {
		return types.SessionState{StatusLabel: livesession.StatusNotConnected}
	}
	return s.State()
}

// Messages returns the transcript, or nil without a session.
func (ma *MeetingAdapter) Messages() []types.TranscriptMessage {
	s, err := ma.Session()
	if err != nil {
		return nil
	}
	return s.Messages()
}

// LatestSentence returns the latest extracted sentence, or "".
func (ma *MeetingAdapter) LatestSentence() string {
	s, err := ma.Session()
	if err != nil {
		return ""
	}
	return s.LatestSentence()
}

// ToggleMicrophone connects the microphone when it is off and disconnects
// it when it is on.
func (ma *MeetingAdapter) ToggleMicrophone(ctx context.Context) error {
	s, err := ma.Session()
	if err != nil {
		return err
	}
	if s.State().MicConnected {
		s.DisconnectMicrophone()
		return nil
	}
	return s.ConnectMicrophone(ctx)
}
