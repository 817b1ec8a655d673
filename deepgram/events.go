package deepgram

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event types from the Deepgram live transcription API.
const (
	EventResults       = "Results"
	EventSpeechStarted = "SpeechStarted"
	EventUtteranceEnd  = "UtteranceEnd"
	EventMetadata      = "Metadata"
	EventError         = "Error"
)

// Control message types sent by the client.
const (
	controlKeepAlive   = "KeepAlive"
	controlCloseStream = "CloseStream"
)

// Event is a discriminated union for listen API events.
// Check the concrete type via type switch.
type Event interface {
	eventType() string
}

// Word is a single word of an alternative, with diarization data.
type Word struct {
	Word              string   `json:"word"`
	PunctuatedWord    string   `json:"punctuated_word,omitempty"`
	Start             float64  `json:"start"`
	End               float64  `json:"end"`
	Confidence        float64  `json:"confidence"`
	Speaker           *int     `json:"speaker,omitempty"`
	SpeakerConfidence *float64 `json:"speaker_confidence,omitempty"`
}

// Alternative is one recognition hypothesis.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words"`
}

// ResultsEvent carries an interim or final transcript.
type ResultsEvent struct {
	ChannelIndex []int   `json:"channel_index"`
	Duration     float64 `json:"duration"`
	Start        float64 `json:"start"`
	IsFinal      bool    `json:"is_final"`
	SpeechFinal  bool    `json:"speech_final"`
	Channel      Channel `json:"channel"`
}

// Channel holds the alternatives for one audio channel.
type Channel struct {
	Alternatives []Alternative `json:"alternatives"`
}

func (ResultsEvent) eventType() string { return EventResults }

// First returns the first alternative, if any.
func (e ResultsEvent) First() (Alternative, bool) {
	if len(e.Channel.Alternatives) == 0 {
		return Alternative{}, false
	}
	return e.Channel.Alternatives[0], true
}

// SpeechStartedEvent is emitted when the service detects speech.
type SpeechStartedEvent struct {
	Channel   []int   `json:"channel"`
	Timestamp float64 `json:"timestamp"`
}

func (SpeechStartedEvent) eventType() string { return EventSpeechStarted }

// UtteranceEndEvent is emitted after utterance_end_ms of silence.
type UtteranceEndEvent struct {
	Channel     []int   `json:"channel"`
	LastWordEnd float64 `json:"last_word_end"`
}

func (UtteranceEndEvent) eventType() string { return EventUtteranceEnd }

// MetadataEvent describes the stream once it is finalized.
type MetadataEvent struct {
	RequestID string  `json:"request_id"`
	Duration  float64 `json:"duration"`
	Channels  int     `json:"channels"`
}

func (MetadataEvent) eventType() string { return EventMetadata }

// ErrorEvent is emitted when the service reports an error.
// The socket stays open.
type ErrorEvent struct {
	Description string `json:"description"`
	Message     string `json:"message"`
	Variant     string `json:"variant"`
}

func (ErrorEvent) eventType() string { return EventError }

// Text returns the most specific human readable error text.
func (e ErrorEvent) Text() string {
	if s := strings.TrimSpace(e.Message); s != "" {
		return s
	}
	return strings.TrimSpace(e.Description)
}

// Err returns the event as an error wrapping ErrService.
func (e ErrorEvent) Err() error {
	return fmt.Errorf("%w: %s", ErrService, e.Text())
}

// UnknownEvent holds events we don't recognize.
type UnknownEvent struct {
	Type string `json:"type"`
	Raw  json.RawMessage
}

func (e UnknownEvent) eventType() string { return e.Type }

// ParseEvent unmarshals JSON into the appropriate Event type.
func ParseEvent(data []byte) (Event, error) {
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, err
	}

	switch header.Type {
	case EventResults:
		var e ResultsEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventSpeechStarted:
		var e SpeechStartedEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventUtteranceEnd:
		var e UtteranceEndEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventMetadata:
		var e MetadataEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventError:
		var e ErrorEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return UnknownEvent{Type: header.Type, Raw: data}, nil
	}
}

type controlMessage struct {
	Type string `json:"type"`
}
