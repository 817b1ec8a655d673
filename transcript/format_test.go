package transcript

import (
	"testing"
	"time"

	"github.com/jarwiz-ai/jarwiz/internal/types"
)

func TestFormatLine(t *testing.T) {
	ts := time.Date(2024, 3, 1, 14, 5, 9, 0, time.UTC).UnixMilli()
	one := 1

	tests := []struct {
		name string
		msg  types.TranscriptMessage
		want string
	}{
		{
			name: "diarized final",
			msg:  types.TranscriptMessage{Text: "Hello.", Kind: types.MessageFinal, SpeakerTag: &one, Timestamp: ts},
			want: "[14:05:09] Speaker 1: Hello.",
		},
		{
			name: "untagged final",
			msg:  types.TranscriptMessage{Text: "Hello.", Kind: types.MessageFinal, Timestamp: ts},
			want: "[14:05:09] Hello.",
		},
		{
			name: "system",
			msg:  types.TranscriptMessage{Text: "Microphone disconnected", Kind: types.MessageSystem, Timestamp: ts},
			want: "[14:05:09] Microphone disconnected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatLine(tt.msg, time.UTC); got != tt.want {
				t.Errorf("FormatLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	if got := Format(nil, time.UTC); got != "" {
		t.Errorf("Format(nil) = %q, want empty", got)
	}

	msgs := []types.TranscriptMessage{
		{Text: "a", Kind: types.MessageSystem},
		{Text: "b", Kind: types.MessageSystem},
	}
	want := "[00:00:00] a\n[00:00:00] b\n"
	if got := Format(msgs, time.UTC); got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}
