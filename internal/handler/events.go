package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/logger"
)

const (
	PingPeriod   = 15 * time.Second
	writeTimeout = 5 * time.Second
	clientBuffer = 256

	// KindTutorialStep is sent to stream clients when a player first performs an action.
	KindTutorialStep model.EventKind = "tutorial.step"
)

// EventHub fans bus events out to websocket clients. It never vetoes an event
// and drops messages for clients that cannot keep up.
type EventHub struct {
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool
}

type hubClient struct {
	out   chan []byte
	kinds map[model.EventKind]bool // empty: everything
}

func (c *hubClient) wants(kind model.EventKind) bool {
	return len(c.kinds) == 0 || c.kinds[kind]
}

func NewEventHub() *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:     logger.Component("events"),
		clients: make(map[*hubClient]struct{}),
	}
}

func (h *EventHub) OnEvent(_ context.Context, ev model.Event) error {
	h.broadcast(ev)
	return nil
}

func (h *EventHub) OnTutorialStep(player, topic string) {
	h.broadcast(model.Event{Kind: KindTutorialStep, Actor: player, At: time.Now(), Payload: gin.H{"topic": topic}})
}

func (h *EventHub) broadcast(ev model.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Warn("event not encodable", "kind", ev.Kind, "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.wants(ev.Kind) {
			continue
		}
		select {
		case c.out <- payload:
		default:
			h.log.Debug("stream client lagging, event dropped", "kind", ev.Kind)
		}
	}
}

// Clients reports how many streams are connected.
func (h *EventHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *EventHub) join(kinds []string) (*hubClient, bool) {
	c := &hubClient{out: make(chan []byte, clientBuffer), kinds: make(map[model.EventKind]bool)}
	for _, k := range kinds {
		if k = strings.TrimSpace(k); k != "" {
			c.kinds[model.EventKind(k)] = true
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	h.clients[c] = struct{}{}
	return c, true
}

func (h *EventHub) leave(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.out)
	}
}

// Serve upgrades the request to a websocket. ?kinds=shop.created,auction.bid limits the stream.
func (h *EventHub) Serve(c *gin.Context) {
	var kinds []string
	if raw := c.Query("kinds"); raw != "" {
		kinds = strings.Split(raw, ",")
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	client, ok := h.join(kinds)
	if !ok {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
		return
	}
	h.log.Info("stream client connected", "remote", c.ClientIP(), "kinds", kinds)

	writeErr := make(chan error, 1)
	go func() {
		ticker := time.NewTicker(PingPeriod)
		defer ticker.Stop()
		for {
			select {
			case b, ok := <-client.out:
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
					writeErr <- nil
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					_ = conn.Close()
					writeErr <- err
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					_ = conn.Close()
					writeErr <- err
					return
				}
			}
		}
	}()

	// Clients only send control frames; reading keeps pongs and close frames flowing.
	readTimeout := PingPeriod + 10*time.Second
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.leave(client)
	select {
	case <-writeErr:
	case <-time.After(500 * time.Millisecond):
	}
	h.log.Info("stream client disconnected", "remote", c.ClientIP())
}

// Run blocks until ctx ends, then disconnects every client.
func (h *EventHub) Run(ctx context.Context) error {
	<-ctx.Done()
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.out)
	}
	h.mu.Unlock()
	return nil
}
