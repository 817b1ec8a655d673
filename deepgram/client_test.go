package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

type frame struct {
	typ  websocket.MessageType
	data []byte
}

// newFakeService starts a server that records inbound frames, sends the
// given events once connected, and checks the auth header.
func newFakeService(t *testing.T, events []string) (*httptest.Server, <-chan frame, <-chan *http.Request) {
	t.Helper()

	frames := make(chan frame, 16)
	reqs := make(chan *http.Request, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqs <- r
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		for _, e := range events {
			if err := conn.Write(ctx, websocket.MessageText, []byte(e)); err != nil {
				return
			}
		}
		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			frames <- frame{typ: typ, data: data}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, frames, reqs
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClient_RoundTrip(t *testing.T) {
	srv, frames, reqs := newFakeService(t, []string{
		`not json`,
		`{"type": "SpeechStarted", "channel": [0], "timestamp": 0}`,
		`{"type": "Results", "is_final": false, "channel": {"alternatives": [{"transcript": "hel"}]}}`,
	})

	c, err := NewClient(Config{APIKey: "secret", URL: wsURL(srv), Options: DefaultListenOptions()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	r := <-reqs
	if got := r.Header.Get("Authorization"); got != "Token secret" {
		t.Errorf("Authorization = %q, want %q", got, "Token secret")
	}
	if got := r.URL.Query().Get("diarize"); got != "true" {
		t.Errorf("diarize = %q, want true", got)
	}

	// The malformed frame is skipped without ending the stream.
	first := <-c.Events()
	if _, ok := first.(SpeechStartedEvent); !ok {
		t.Fatalf("first event = %T, want SpeechStartedEvent", first)
	}
	second := <-c.Events()
	if re, ok := second.(ResultsEvent); !ok || re.IsFinal {
		t.Fatalf("second event = %#v, want interim ResultsEvent", second)
	}

	if err := c.SendAudio(ctx, []byte{1, 2, 3}); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}
	if err := c.KeepAlive(ctx); err != nil {
		t.Fatalf("KeepAlive: %v", err)
	}
	if err := c.CloseStream(ctx); err != nil {
		t.Fatalf("CloseStream: %v", err)
	}

	got := <-frames
	if got.typ != websocket.MessageBinary || len(got.data) != 3 {
		t.Errorf("audio frame = %v %v, want 3 binary bytes", got.typ, got.data)
	}
	for _, want := range []string{"KeepAlive", "CloseStream"} {
		f := <-frames
		var msg controlMessage
		if err := json.Unmarshal(f.data, &msg); err != nil {
			t.Fatalf("control frame: %v", err)
		}
		if f.typ != websocket.MessageText || msg.Type != want {
			t.Errorf("control = %v %q, want text %q", f.typ, msg.Type, want)
		}
	}
}

func TestClient_CloseIdempotent(t *testing.T) {
	srv, _, _ := newFakeService(t, nil)

	c, err := NewClient(Config{APIKey: "k", URL: wsURL(srv)})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if c.IsOpen() {
		t.Error("IsOpen() = true after Close")
	}
	if err := c.KeepAlive(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("KeepAlive after Close = %v, want ErrClosed", err)
	}

	// Events channel drains and closes.
	for range c.Events() {
	}
	if err := c.Err(); err != nil {
		t.Errorf("Err() = %v after local close, want nil", err)
	}
}

func TestClient_NotConnected(t *testing.T) {
	c, err := NewClient(Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := c.SendAudio(context.Background(), []byte{0}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendAudio = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("NewClient without key: want error")
	}
}
