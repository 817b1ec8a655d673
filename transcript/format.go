package transcript

import (
	"fmt"
	"strings"
	"time"

	"github.com/jarwiz-ai/jarwiz/internal/types"
)

// TimeLayout is the clock format of a transcript line.
const TimeLayout = "15:04:05"

// FormatLine renders one message as "[15:04:05] Speaker 1: text" in loc.
// System messages and untagged finals carry no speaker.
func FormatLine(m types.TranscriptMessage, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	ts := time.UnixMilli(m.Timestamp).In(loc).Format(TimeLayout)
	if m.Kind == types.MessageFinal && m.SpeakerTag != nil {
		return fmt.Sprintf("[%s] Speaker %d: %s", ts, *m.SpeakerTag, m.Text)
	}
	return fmt.Sprintf("[%s] %s", ts, m.Text)
}

// Format renders messages one per line.
func Format(msgs []types.TranscriptMessage, loc *time.Location) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(FormatLine(m, loc))
		b.WriteByte('\n')
	}
	return b.String()
}
