package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"nhooyr.io/websocket"
)

// Sentinel errors.
var (
	ErrNotConnected = errors.New("deepgram: not connected")
	ErrClosed       = errors.New("deepgram: client closed")
	// ErrService wraps errors reported by the service in Error events.
	ErrService = errors.New("deepgram: service error")
)

// readLimit bounds a single inbound JSON event.
const readLimit = 1 << 20

// Config holds configuration for the client.
type Config struct {
	APIKey  string
	URL     string // Default: DefaultURL
	Options ListenOptions
}

// Client is one listen socket. It is not reusable: after Close, create a new
// Client.
type Client struct {
	url    string
	apiKey string

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	err    error

	msgChan chan Event
	done    chan struct{}
	cancel  context.CancelFunc
}

// NewClient creates a new listen client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("deepgram: API key required")
	}
	u, err := ListenURL(cfg.URL, cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("build listen url: %w", err)
	}

	return &Client{
		url:     u,
		apiKey:  cfg.APIKey,
		msgChan: make(chan Event, 100),
		done:    make(chan struct{}),
	}, nil
}

// Connect opens the WebSocket and starts reading events.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.conn != nil {
		return nil
	}

	conn, _, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": {"Token " + c.apiKey},
		},
	})
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	conn.SetReadLimit(readLimit)
	c.conn = conn

	readCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.readLoop(readCtx, conn)

	slog.Debug("deepgram socket open")
	return nil
}

// SendAudio sends one binary audio chunk.
func (c *Client) SendAudio(ctx context.Context, chunk []byte) error {
	conn, err := c.openConn()
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageBinary, chunk)
}

// KeepAlive tells the service the stream is idle but alive.
func (c *Client) KeepAlive(ctx context.Context) error {
	return c.sendControl(ctx, controlKeepAlive)
}

// CloseStream asks the service to flush and finish the stream.
func (c *Client) CloseStream(ctx context.Context) error {
	return c.sendControl(ctx, controlCloseStream)
}

func (c *Client) sendControl(ctx context.Context, typ string) error {
	conn, err := c.openConn()
	if err != nil {
		return err
	}
	data, err := json.Marshal(controlMessage{Type: typ})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func (c *Client) openConn() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	select {
	case <-c.done:
		return nil, ErrClosed
	default:
	}
	return c.conn, nil
}

// IsOpen reports whether the socket is connected and not closed.
func (c *Client) IsOpen() bool {
	_, err := c.openConn()
	return err == nil
}

// Events returns the channel of parsed events. It is closed when the socket
// stops reading, after which Err reports why.
func (c *Client) Events() <-chan Event {
	return c.msgChan
}

// Err returns the error that ended the read loop, nil after a local Close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close closes the socket. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	cancel := c.cancel
	c.mu.Unlock()

	if conn == nil {
		close(c.msgChan)
		return nil
	}

	err := conn.Close(websocket.StatusNormalClosure, "")
	if cancel != nil {
		cancel()
	}
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		return nil
	}
	return err
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer close(c.msgChan)
	defer close(c.done)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			c.mu.Lock()
			if !c.closed && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				c.err = fmt.Errorf("read: %w", err)
			}
			c.mu.Unlock()
			return
		}

		event, err := ParseEvent(data)
		if err != nil {
			slog.Warn("failed to parse deepgram event", "error", err)
			continue
		}

		select {
		case c.msgChan <- event:
		case <-ctx.Done():
			return
		}
	}
}
