package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jarwiz-ai/jarwiz/internal/types"
)

var (
	ErrEmptyQuery    = errors.New("query is empty")
	ErrQueryInFlight = errors.New("a query is already in flight")
)

// SourceVoice marks a user message asked from the live transcript.
const SourceVoice = "voice"

// Querier answers questions against the indexed documents.
// *ragclient.Client implements it.
type Querier interface {
	Query(ctx context.Context, query string, docID string, topK int) (types.QueryResult, error)
}

// Chat owns the chat log. One query runs at a time.
type Chat struct {
	querier Querier
	scope   func() string
	emit    Emitter

	mu        sync.Mutex
	messages  []types.ChatMessage
	loading   bool
	lastError string
	citations []types.Citation
}

// NewChat creates an empty chat. scope returns the selected document id,
// or "" to search all documents.
func NewChat(q Querier, scope func() string, emit Emitter) *Chat {
	if scope == nil {
		scope = func() string { return "" }
	}
	return &Chat{querier: q, scope: scope, emit: emit}
}

// Submit asks text typed by the user.
func (c *Chat) Submit(ctx context.Context, text string) (types.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.ChatMessage{}, ErrEmptyQuery
	}
	return c.ask(ctx, text, "")
}

// AskLatest asks the latest transcribed sentence.
func (c *Chat) AskLatest(ctx context.Context, sentence string) (types.ChatMessage, error) {
	if strings.TrimSpace(sentence) == "" {
		return types.ChatMessage{}, ErrEmptyQuery
	}
	return c.ask(ctx, sentence, SourceVoice)
}

// ask appends the user message, queries the backend and appends the answer.
// A failed query is recorded as an error message and returned.
func (c *Chat) ask(ctx context.Context, text, source string) (types.ChatMessage, error) {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return types.ChatMessage{}, ErrQueryInFlight
	}
	c.loading = true
	c.lastError = ""
	c.messages = append(c.messages, types.ChatMessage{
		ID:      uuid.NewString(),
		Role:    types.RoleUser,
		Content: text,
		Source:  source,
	})
	docID := c.scope()
	state := c.stateLocked()
	c.mu.Unlock()
	c.emit.emit(EventChatState, state)

	res, err := c.querier.Query(ctx, text, docID, types.DefaultTopK)

	c.mu.Lock()
	reply := types.ChatMessage{ID: uuid.NewString(), Role: types.RoleAssistant}
	if err != nil {
		slog.Warn("query failed", "doc_id", docID, "error", err)
		c.lastError = err.Error()
		reply.Content = "Error: " + err.Error()
		reply.Error = true
	} else {
		reply.Content = res.Answer
		reply.Citations = res.Citations
		c.citations = res.Citations
	}
	c.messages = append(c.messages, reply)
	c.loading = false
	state = c.stateLocked()
	c.mu.Unlock()

	c.emit.emit(EventChatState, state)
	if err != nil {
		return reply, err
	}
	c.emit.emit(EventCitations, res.Citations)
	return reply, nil
}

// State returns a snapshot of the chat panel.
func (c *Chat) State() types.ChatState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Chat) stateLocked() types.ChatState {
	msgs := make([]types.ChatMessage, len(c.messages))
	copy(msgs, c.messages)
	return types.ChatState{
		Messages:      msgs,
		Loading:       c.loading,
		LastError:     c.lastError,
		SelectedDocID: c.scope(),
	}
}

// Citations returns the citations of the last successful answer.
func (c *Chat) Citations() []types.Citation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Citation, len(c.citations))
	copy(out, c.citations)
	return out
}
