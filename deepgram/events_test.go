package deepgram

import (
	"errors"
	"testing"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name      string
		json      string
		wantType  string
		wantErr   bool
		checkFunc func(t *testing.T, e Event)
	}{
		{
			name: "FinalResults",
			json: `{
				"type": "Results",
				"channel_index": [0, 1],
				"is_final": true,
				"speech_final": true,
				"channel": {"alternatives": [{
					"transcript": "Hi there Bob.",
					"confidence": 0.98,
					"words": [
						{"word": "hi", "punctuated_word": "Hi", "start": 0.1, "end": 0.3, "speaker": 0},
						{"word": "there", "start": 0.3, "end": 0.5, "speaker": 0},
						{"word": "bob", "punctuated_word": "Bob.", "start": 0.6, "end": 0.9, "speaker": 1}
					]
				}]}
			}`,
			wantType: EventResults,
			checkFunc: func(t *testing.T, e Event) {
				re, ok := e.(ResultsEvent)
				if !ok {
					t.Fatalf("got %T, want ResultsEvent", e)
				}
				if !re.IsFinal {
					t.Error("IsFinal = false, want true")
				}
				alt, ok := re.First()
				if !ok {
					t.Fatal("First() found no alternative")
				}
				if alt.Transcript != "Hi there Bob." {
					t.Errorf("Transcript = %q, want %q", alt.Transcript, "Hi there Bob.")
				}
				if len(alt.Words) != 3 {
					t.Fatalf("got %d words, want 3", len(alt.Words))
				}
				if w := alt.Words[0]; w.Word != "hi" || w.PunctuatedWord != "Hi" {
					t.Errorf("Words[0] = %q/%q, want %q/%q", w.Word, w.PunctuatedWord, "hi", "Hi")
				}
				if alt.Words[2].Speaker == nil || *alt.Words[2].Speaker != 1 {
					t.Errorf("Words[2].Speaker = %v, want 1", alt.Words[2].Speaker)
				}
			},
		},
		{
			name:     "ResultsWithoutAlternatives",
			json:     `{"type": "Results", "is_final": false, "channel": {"alternatives": []}}`,
			wantType: EventResults,
			checkFunc: func(t *testing.T, e Event) {
				if _, ok := e.(ResultsEvent).First(); ok {
					t.Error("First() found an alternative in an empty list")
				}
			},
		},
		{
			name:     "SpeechStarted",
			json:     `{"type": "SpeechStarted", "channel": [0], "timestamp": 1.5}`,
			wantType: EventSpeechStarted,
		},
		{
			name:     "UtteranceEnd",
			json:     `{"type": "UtteranceEnd", "channel": [0, 1], "last_word_end": 2.5}`,
			wantType: EventUtteranceEnd,
			checkFunc: func(t *testing.T, e Event) {
				ue, ok := e.(UtteranceEndEvent)
				if !ok {
					t.Fatalf("got %T, want UtteranceEndEvent", e)
				}
				if ue.LastWordEnd != 2.5 {
					t.Errorf("LastWordEnd = %v, want 2.5", ue.LastWordEnd)
				}
			},
		},
		{
			name:     "Error",
			json:     `{"type": "Error", "description": "bad audio", "message": "Failed to decode", "variant": "DATA-0000"}`,
			wantType: EventError,
			checkFunc: func(t *testing.T, e Event) {
				ee, ok := e.(ErrorEvent)
				if !ok {
					t.Fatalf("got %T, want ErrorEvent", e)
				}
				if ee.Text() != "Failed to decode" {
					t.Errorf("Text() = %q, want %q", ee.Text(), "Failed to decode")
				}
			},
		},
		{
			name:     "ErrorDescriptionOnly",
			json:     `{"type": "Error", "description": "bad audio"}`,
			wantType: EventError,
			checkFunc: func(t *testing.T, e Event) {
				if got := e.(ErrorEvent).Text(); got != "bad audio" {
					t.Errorf("Text() = %q, want %q", got, "bad audio")
				}
			},
		},
		{
			name:     "Metadata",
			json:     `{"type": "Metadata", "request_id": "req-1", "duration": 3.2, "channels": 1}`,
			wantType: EventMetadata,
		},
		{
			name:     "UnknownType",
			json:     `{"type": "Something.New"}`,
			wantType: "Something.New",
			checkFunc: func(t *testing.T, e Event) {
				if _, ok := e.(UnknownEvent); !ok {
					t.Fatalf("got %T, want UnknownEvent", e)
				}
			},
		},
		{
			name:    "Malformed",
			json:    `{"type": `,
			wantErr: true,
		},
		{
			name:    "WrongFieldType",
			json:    `{"type": "Results", "is_final": "yes"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := ParseEvent([]byte(tt.json))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if e.eventType() != tt.wantType {
				t.Errorf("eventType() = %q, want %q", e.eventType(), tt.wantType)
			}
			if tt.checkFunc != nil {
				tt.checkFunc(t, e)
			}
		})
	}
}

func TestErrorEvent_Err(t *testing.T) {
	err := ErrorEvent{Message: "bad audio"}.Err()
	if !errors.Is(err, ErrService) {
		t.Errorf("Err() = %v, want wrapping ErrService", err)
	}
}
