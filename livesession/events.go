package livesession

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jarwiz-ai/jarwiz/deepgram"
	"github.com/jarwiz-ai/jarwiz/internal/types"
	"github.com/jarwiz-ai/jarwiz/transcript"
)

// UpdateKind identifies what changed in an Update.
type UpdateKind int

const (
	UpdateState UpdateKind = iota
	UpdateMessage
	UpdateLatestSentence
)

// Update is a change published to listeners.
type Update struct {
	Kind     UpdateKind
	State    types.SessionState
	Message  types.TranscriptMessage
	Sentence string
}

// Listener receives updates in order. It must not call lifecycle methods of
// the session synchronously. It may unsubscribe itself.
type Listener func(Update)

// listeners has its own lock so that a listener can unsubscribe while an
// update is being delivered.
type listeners struct {
	mu   sync.Mutex
	next int
	m    map[int]Listener
}

func (l *listeners) add(fn Listener) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.m == nil {
		l.m = make(map[int]Listener)
	}
	id := l.next
	l.next++
	l.m[id] = fn
	return id
}

func (l *listeners) remove(id int) {
	l.mu.Lock()
	delete(l.m, id)
	l.mu.Unlock()
}

func (l *listeners) snapshot() []Listener {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Listener, 0, len(l.m))
	for _, fn := range l.m {
		out = append(out, fn)
	}
	return out
}

// Subscribe registers fn and returns a func that removes it.
func (s *Session) Subscribe(fn Listener) (unsubscribe func()) {
	id := s.listeners.add(fn)

	var once sync.Once
	return func() {
		once.Do(func() { s.listeners.remove(id) })
	}
}

// queueState records a state update. Requires mu.
func (s *Session) queueState() {
	s.pending = append(s.pending, Update{Kind: UpdateState, State: s.state})
}

// queueMessage records a new transcript message. Requires mu.
func (s *Session) queueMessage(m types.TranscriptMessage) {
	s.pending = append(s.pending, Update{Kind: UpdateMessage, Message: m})
}

// unlockAndFlush releases mu and delivers queued updates.
func (s *Session) unlockAndFlush() {
	pending := s.pending
	s.pending = nil

	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()

	// emitMu keeps batches from different goroutines in order.
	for _, u := range pending {
		for _, fn := range s.listeners.snapshot() {
			fn(u)
		}
	}
}

// HandleEvent applies one transcription service event to the session.
func (s *Session) HandleEvent(e deepgram.Event) {
	switch ev := e.(type) {
	case deepgram.ResultsEvent:
		s.handleResults(ev)
	case deepgram.SpeechStartedEvent:
		slog.Debug("speech detected", "timestamp", ev.Timestamp)
	case deepgram.UtteranceEndEvent:
		s.mu.Lock()
		s.log.ClearPartial()
		s.state.CurrentPartialText = ""
		s.queueState()
		s.unlockAndFlush()
	case deepgram.ErrorEvent:
		msg := ev.Text()
		if msg == "" {
			msg = "Unknown error"
		}
		slog.Error("transcription service error", "error", ev.Err(), "variant", ev.Variant)
		s.mu.Lock()
		s.state.LastError = "Deepgram error: " + msg
		s.queueState()
		s.unlockAndFlush()
	default:
		slog.Debug("ignore transcription event", "type", fmt.Sprintf("%T", e))
	}
}

func (s *Session) handleResults(ev deepgram.ResultsEvent) {
	alt, ok := ev.First()
	if !ok {
		return
	}
	text := strings.TrimSpace(alt.Transcript)
	if text == "" {
		return
	}

	s.mu.Lock()
	defer s.unlockAndFlush()

	if !ev.IsFinal {
		s.log.SetPartial(text)
		s.state.CurrentPartialText = text
		s.queueState()
		return
	}

	if len(alt.Words) == 0 {
		s.appendFinal(alt.Transcript, nil)
		return
	}

	words := make([]transcript.Word, len(alt.Words))
	for i, w := range alt.Words {
		words[i] = transcript.Word{Word: w.Word, Speaker: w.Speaker, Start: w.Start, End: w.End}
	}
	segments := transcript.GroupBySpeaker(words)
	for _, seg := range segments {
		speaker := seg.Speaker
		s.appendFinal(seg.Text, &speaker)
	}
	slog.Debug("final transcript", "segments", len(segments))
}

// appendFinal logs a final message and refreshes the latest sentence.
// Requires mu.
func (s *Session) appendFinal(text string, speaker *int) {
	s.queueMessage(s.log.AddFinal(text, speaker))

	if sentence, ok := s.log.UpdateLatest(text); ok {
		s.state.LatestSentence = sentence
		s.pending = append(s.pending, Update{Kind: UpdateLatestSentence, Sentence: sentence})
		s.queueState()
	}
}
