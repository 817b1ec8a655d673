package app

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/jarwiz-ai/jarwiz/internal/types"
)

type fakeQuerier struct {
	mu      sync.Mutex
	calls   []queryCall
	result  types.QueryResult
	err     error
	release chan struct{} // when set, Query blocks until closed
}

type queryCall struct {
	query string
	docID string
	topK  int
}

func (f *fakeQuerier) Query(_ context.Context, query, docID string, topK int) (types.QueryResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, queryCall{query, docID, topK})
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	return f.result, f.err
}

type recordedEvent struct {
	name string
	data any
}

type eventLog struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (l *eventLog) emit(name string, data any) {
	l.mu.Lock()
	l.events = append(l.events, recordedEvent{name, data})
	l.mu.Unlock()
}

func (l *eventLog) named(name string) []any {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []any
	for _, e := range l.events {
		if e.name == name {
			out = append(out, e.data)
		}
	}
	return out
}

func TestChat_Submit(t *testing.T) {
	page := 3
	q := &fakeQuerier{result: types.QueryResult{
		Answer:    "The answer.",
		Citations: []types.Citation{{Type: types.CitationText, DocID: "d1", Page: page}},
	}}
	events := &eventLog{}
	c := NewChat(q, func() string { return "d1" }, events.emit)

	reply, err := c.Submit(context.Background(), "  what is it?  ")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if reply.Role != types.RoleAssistant || reply.Content != "The answer." || len(reply.Citations) != 1 {
		t.Errorf("Submit() reply = %+v", reply)
	}

	if len(q.calls) != 1 {
		t.Fatalf("Query called %d times, want 1", len(q.calls))
	}
	if got := q.calls[0]; got != (queryCall{"what is it?", "d1", types.DefaultTopK}) {
		t.Errorf("Query(%+v)", got)
	}

	state := c.State()
	if state.Loading {
		t.Error("Loading = true after Submit returned")
	}
	if len(state.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(state.Messages))
	}
	if m := state.Messages[0]; m.Role != types.RoleUser || m.Content != "what is it?" || m.Source != "" {
		t.Errorf("user message = %+v", m)
	}
	if state.SelectedDocID != "d1" {
		t.Errorf("SelectedDocID = %q, want d1", state.SelectedDocID)
	}

	if got := c.Citations(); len(got) != 1 || got[0].Page != page {
		t.Errorf("Citations() = %+v", got)
	}
	if n := len(events.named(EventChatState)); n != 2 {
		t.Errorf("chat-state events = %d, want 2", n)
	}
	if n := len(events.named(EventCitations)); n != 1 {
		t.Errorf("citations events = %d, want 1", n)
	}
}

func TestChat_SubmitRejects(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace", " \t\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQuerier{}
			c := NewChat(q, nil, nil)
			if _, err := c.Submit(context.Background(), tt.text); !errors.Is(err, ErrEmptyQuery) {
				t.Errorf("Submit(%q) error = %v, want ErrEmptyQuery", tt.text, err)
			}
			if len(q.calls) != 0 || len(c.State().Messages) != 0 {
				t.Error("rejected query reached the backend or the log")
			}
		})
	}
}

func TestChat_Failure(t *testing.T) {
	q := &fakeQuerier{err: errors.New("Query failed")}
	events := &eventLog{}
	c := NewChat(q, nil, events.emit)

	reply, err := c.Submit(context.Background(), "hi")
	if err == nil {
		t.Fatal("Submit() error = nil, want failure")
	}
	if !reply.Error || reply.Content != "Error: Query failed" {
		t.Errorf("reply = %+v", reply)
	}

	state := c.State()
	if state.LastError != "Query failed" {
		t.Errorf("LastError = %q", state.LastError)
	}
	if len(state.Messages) != 2 {
		t.Errorf("len(Messages) = %d, want 2", len(state.Messages))
	}
	if n := len(events.named(EventCitations)); n != 0 {
		t.Errorf("citations events = %d, want 0", n)
	}
	if q.calls[0].docID != "" {
		t.Errorf("docID = %q, want all documents", q.calls[0].docID)
	}
}

func TestChat_AskLatest(t *testing.T) {
	q := &fakeQuerier{result: types.QueryResult{Answer: "ok"}}
	c := NewChat(q, nil, nil)

	if _, err := c.AskLatest(context.Background(), ""); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("AskLatest(\"\") error = %v, want ErrEmptyQuery", err)
	}

	if _, err := c.AskLatest(context.Background(), "What is the revenue?"); err != nil {
		t.Fatalf("AskLatest() error = %v", err)
	}
	msgs := c.State().Messages
	if len(msgs) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(msgs))
	}
	if msgs[0].Source != SourceVoice || msgs[0].Content != "What is the revenue?" {
		t.Errorf("voice message = %+v", msgs[0])
	}
}

func TestChat_InFlight(t *testing.T) {
	q := &fakeQuerier{release: make(chan struct{}), result: types.QueryResult{Answer: "ok"}}
	c := NewChat(q, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), "first")
		done <- err
	}()

	// Wait until the first query is in flight.
	for !c.State().Loading {
		runtime.Gosched()
	}

	if _, err := c.Submit(context.Background(), "second"); !errors.Is(err, ErrQueryInFlight) {
		t.Errorf("second Submit() error = %v, want ErrQueryInFlight", err)
	}

	close(q.release)
	if err := <-done; err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	if n := len(c.State().Messages); n != 2 {
		t.Errorf("len(Messages) = %d, want 2", n)
	}
}
