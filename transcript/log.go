package transcript

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jarwiz-ai/jarwiz/internal/types"
)

// Log holds the messages of one transcription session and the live partial
// line. Messages are only ever appended; the partial line is overwritten.
type Log struct {
	mu sync.Mutex

	messages []types.TranscriptMessage
	partial  string
	latest   string

	// now is swapped in tests
	now func() time.Time
}

// NewLog creates an empty transcript log.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// AddFinal appends a finalized message. speaker may be nil.
func (l *Log) AddFinal(text string, speaker *int) types.TranscriptMessage {
	return l.add(text, types.MessageFinal, speaker)
}

// AddSystem appends an informational message.
func (l *Log) AddSystem(text string) types.TranscriptMessage {
	return l.add(text, types.MessageSystem, nil)
}

func (l *Log) add(text string, kind types.MessageKind, speaker *int) types.TranscriptMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	var tag *int
	if speaker != nil {
		s := *speaker
		tag = &s
	}

	msg := types.TranscriptMessage{
		ID:         uuid.NewString(),
		Text:       text,
		Kind:       kind,
		SpeakerTag: tag,
		Timestamp:  l.now().UnixMilli(),
	}
	l.messages = append(l.messages, msg)
	return msg
}

// SetPartial replaces the live partial line.
func (l *Log) SetPartial(text string) {
	l.mu.Lock()
	l.partial = text
	l.mu.Unlock()
}

// ClearPartial drops the live partial line.
func (l *Log) ClearPartial() {
	l.SetPartial("")
}

// Partial returns the live partial line.
func (l *Log) Partial() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.partial
}

// UpdateLatest runs the sentence extractor over text and remembers the
// result. It reports whether the latest sentence was updated.
func (l *Log) UpdateLatest(text string) (string, bool) {
	sentence, ok := LatestSentence(text)
	if !ok {
		return "", false
	}

	l.mu.Lock()
	l.latest = sentence
	l.mu.Unlock()
	return sentence, true
}

// Latest returns the most recently extracted sentence.
func (l *Log) Latest() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.latest
}

// Messages returns a copy of all messages in arrival order.
func (l *Log) Messages() []types.TranscriptMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]types.TranscriptMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// Count returns the number of messages.
func (l *Log) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}
