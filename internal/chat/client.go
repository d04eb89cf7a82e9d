package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const maxReconnectAttempts = 5

// ErrReconnectFailed is returned by Run once every reconnect attempt has
// been exhausted; callers should surface a persistent disconnected state.
var ErrReconnectFailed = errors.New("chat: reconnect attempts exhausted")

// reconnectDelay is min(1s << attempt, 30s): ~1s, 2s, 4s, 8s, 16s.
func reconnectDelay(attempt int) time.Duration {
	d := time.Second << attempt
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

// Socket and Dialer are seams over the websocket connection so the
// reconnect logic is testable without a server.
type Socket interface {
	ReadText(ctx context.Context) (string, error)
	WriteText(ctx context.Context, text string) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

type wsDialer struct{}

func (wsDialer) Dial(ctx context.Context, url string) (Socket, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsSocket{conn: conn}, nil
}

type wsSocket struct {
	conn *websocket.Conn
}

func (s *wsSocket) ReadText(ctx context.Context) (string, error) {
	_, data, err := s.conn.Read(ctx)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *wsSocket) WriteText(ctx context.Context, text string) error {
	return s.conn.Write(ctx, websocket.MessageText, []byte(text))
}

func (s *wsSocket) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}

// Client maintains a chat connection to the backend, dispatches inbound
// events by type, and reconnects with capped exponential backoff when the
// socket drops.
type Client struct {
	url     string
	dialer  Dialer
	onEvent func(Event)
	sleep   func(time.Duration)

	mu      sync.Mutex
	history []ChatMessage
	sock    Socket
}

func NewClient(url string) *Client {
	return &Client{
		url:    url,
		dialer: wsDialer{},
		sleep:  time.Sleep,
	}
}

// OnEvent registers the dispatch callback. Must be set before Run.
func (c *Client) OnEvent(fn func(Event)) {
	c.onEvent = fn
}

// Run connects and reads until ctx is cancelled or reconnecting fails for
// good. The conversation history is replayed on reconnect so the server can
// re-seed the session.
func (c *Client) Run(ctx context.Context) error {
	for {
		sock, err := c.connect(ctx)
		if err != nil {
			return err
		}
		c.setSock(sock)

		err = c.readLoop(ctx, sock)
		_ = sock.Close()
		c.setSock(nil)
		if ctx.Err() != nil {
			return nil
		}
		log.Printf("chat: connection lost: %v", err)
	}
}

func (c *Client) connect(ctx context.Context) (Socket, error) {
	sock, err := c.dialer.Dial(ctx, c.url)
	if err == nil {
		return sock, nil
	}
	for attempt := 0; attempt < maxReconnectAttempts; attempt++ {
		c.sleep(reconnectDelay(attempt))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		sock, err = c.dialer.Dial(ctx, c.url)
		if err == nil {
			return sock, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrReconnectFailed, err)
}

func (c *Client) readLoop(ctx context.Context, sock Socket) error {
	for {
		text, err := sock.ReadText(ctx)
		if err != nil {
			return err
		}
		var evt Event
		if err := json.Unmarshal([]byte(text), &evt); err != nil {
			log.Printf("chat: bad event: %v", err)
			continue
		}
		if evt.Type == EventAgentResponse && len(evt.ConversationHistory) > 0 {
			c.mu.Lock()
			c.history = evt.ConversationHistory
			c.mu.Unlock()
		}
		if c.onEvent != nil {
			c.onEvent(evt)
		}
	}
}

func (c *Client) setSock(sock Socket) {
	c.mu.Lock()
	c.sock = sock
	c.mu.Unlock()
}

// Send delivers one chat message along with the transcript so far.
func (c *Client) Send(ctx context.Context, message string) error {
	c.mu.Lock()
	sock := c.sock
	history := c.history
	c.mu.Unlock()
	if sock == nil {
		return errors.New("chat: not connected")
	}
	payload, err := json.Marshal(inboundMessage{
		Message:             message,
		ConversationHistory: history,
	})
	if err != nil {
		return err
	}
	return sock.WriteText(ctx, string(payload))
}
