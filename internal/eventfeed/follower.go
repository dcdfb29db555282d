package eventfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/logger"
)

const (
	ReconnBaseDelay = 1 * time.Second
	ReconnMaxDelay  = 30 * time.Second
	PingPeriod      = 15 * time.Second // Keep-alive interval
)

// Handler receives every decoded event in arrival order.
type Handler func(ev Event)

// Event is a stream message; the payload stays raw because its type depends on Kind.
type Event struct {
	Kind    model.EventKind `json:"kind"`
	Actor   string          `json:"actor,omitempty"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Follower keeps a websocket to /v1/events open, reconnecting with backoff.
type Follower struct {
	url    string
	header http.Header
	handle Handler

	mu          sync.Mutex
	conn        *websocket.Conn
	isConnected bool
	received    int
}

// NewFollower builds a follower for the server at base (http or ws scheme).
func NewFollower(base, playerID string, kinds []string, handle Handler) (*Follower, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + "/v1/events")
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if len(kinds) > 0 {
		q := u.Query()
		q.Set("kinds", strings.Join(kinds, ","))
		u.RawQuery = q.Encode()
	}
	header := http.Header{}
	if playerID != "" {
		header.Set("X-Player-ID", playerID)
	}
	return &Follower{url: u.String(), header: header, handle: handle}, nil
}

func (f *Follower) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isConnected
}

func (f *Follower) Received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.received
}

// Run follows the stream until ctx ends.
func (f *Follower) Run(ctx context.Context) error {
	delay := ReconnBaseDelay
	go func() {
		<-ctx.Done()
		f.mu.Lock()
		if f.conn != nil {
			f.conn.Close()
		}
		f.mu.Unlock()
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := f.connect(ctx); err != nil {
			logger.Error("event stream connection failed", "error", err, "retry_in", delay)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			delay *= 2
			if delay > ReconnMaxDelay {
				delay = ReconnMaxDelay
			}
			continue
		}

		delay = ReconnBaseDelay
		logger.Info("following event stream", "url", f.url)
		f.readLoop()

		f.mu.Lock()
		f.isConnected = false
		f.conn = nil
		f.mu.Unlock()
	}
}

func (f *Follower) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, f.header)
	if err != nil {
		return err
	}

	// no frame (or pong) within PingPeriod plus a buffer means the server is gone
	readTimeout := PingPeriod + 10*time.Second
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	f.mu.Lock()
	f.conn = conn
	f.isConnected = true
	if ctx.Err() != nil {
		// Run's closer may have fired before conn was set
		conn.Close()
	}
	f.mu.Unlock()
	return nil
}

func (f *Follower) readLoop() {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		return
	}
	defer conn.Close()

	readTimeout := PingPeriod + 10*time.Second
	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("event stream read failed", "error", err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(message, &ev); err != nil || ev.Kind == "" {
			continue
		}
		f.mu.Lock()
		f.received++
		f.mu.Unlock()
		if f.handle != nil {
			f.handle(ev)
		}
	}
}
