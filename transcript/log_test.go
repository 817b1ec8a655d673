package transcript

import (
	"testing"
	"time"

	"github.com/jarwiz-ai/jarwiz/internal/types"
)

func TestLog_AppendOnly(t *testing.T) {
	l := NewLog()
	fixed := time.UnixMilli(1700000000000)
	l.now = func() time.Time { return fixed }

	l.AddSystem("Listening")
	tag := 1
	first := l.AddFinal("Hello", &tag)
	tag = 7 // caller mutation must not leak into the log

	msgs := l.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Kind != types.MessageSystem {
		t.Errorf("Kind = %q, want %q", msgs[0].Kind, types.MessageSystem)
	}
	if msgs[1].SpeakerTag == nil || *msgs[1].SpeakerTag != 1 {
		t.Errorf("SpeakerTag = %v, want 1", msgs[1].SpeakerTag)
	}
	if msgs[1].ID != first.ID || msgs[1].ID == msgs[0].ID {
		t.Errorf("IDs not unique or not stable: %q %q", msgs[0].ID, msgs[1].ID)
	}
	if msgs[1].Timestamp != fixed.UnixMilli() {
		t.Errorf("Timestamp = %d, want %d", msgs[1].Timestamp, fixed.UnixMilli())
	}

	// Returned slice is a copy.
	msgs[0].Text = "changed"
	if l.Messages()[0].Text != "Listening" {
		t.Error("Messages() exposed internal storage")
	}
}

func TestLog_PartialOverwritten(t *testing.T) {
	l := NewLog()

	l.SetPartial("hel")
	l.SetPartial("hello wor")
	if got := l.Partial(); got != "hello wor" {
		t.Errorf("Partial() = %q, want %q", got, "hello wor")
	}
	if l.Count() != 0 {
		t.Errorf("partial text must not be appended, Count() = %d", l.Count())
	}

	l.ClearPartial()
	if got := l.Partial(); got != "" {
		t.Errorf("Partial() = %q after clear, want empty", got)
	}
}

func TestLog_UpdateLatest(t *testing.T) {
	l := NewLog()

	if _, ok := l.UpdateLatest("   "); ok {
		t.Error("whitespace must not update latest sentence")
	}
	if got, ok := l.UpdateLatest("First one. second"); !ok || got != "First one." {
		t.Errorf("UpdateLatest = %q, %v", got, ok)
	}
	l.UpdateLatest("")
	if got := l.Latest(); got != "First one." {
		t.Errorf("Latest() = %q, want %q", got, "First one.")
	}
}
