package realtime

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/verbo-app/roomsync/internal/shared"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// push maintains the best-effort WebSocket subscription to a room. A lost
// connection reconnects with capped backoff; after the attempt budget is
// spent the channel stays down silently and the poll loop carries the room.
type push struct {
	url     string
	backoff shared.BackoffConfig
	events  chan<- Event
	log     *slog.Logger

	mu        sync.RWMutex
	connected bool
}

func pushURL(wsBase, roomID, userID string) string {
	base := strings.TrimRight(wsBase, "/")
	q := url.Values{}
	q.Set("roomId", roomID)
	q.Set("userId", userID)
	return base + "/ws?" + q.Encode()
}

func newPush(cfg Config, roomID, userID string, events chan<- Event, log *slog.Logger) *push {
	return &push{
		url:     pushURL(cfg.WSBaseURL, roomID, userID),
		backoff: cfg.Backoff,
		events:  events,
		log:     log.With("channel", "push"),
	}
}

func (p *push) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *push) setConnected(connected bool) {
	p.mu.Lock()
	p.connected = connected
	p.mu.Unlock()
}

func (p *push) run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.url, nil)
		if err != nil {
			attempt++
			if attempt > p.backoff.MaxAttempts {
				p.log.Warn("push channel gave up reconnecting, poll loop carries the room", "attempts", attempt-1)
				return
			}
			p.log.Debug("push dial failed, backing off", "error", err, "attempt", attempt)
			select {
			case <-time.After(p.backoff.Delay(attempt)):
			case <-ctx.Done():
				return
			}
			continue
		}

		attempt = 0
		p.setConnected(true)
		p.log.Debug("push channel connected")

		p.readPump(ctx, conn)

		p.setConnected(false)
		if ctx.Err() != nil {
			return
		}
		attempt++
		if attempt > p.backoff.MaxAttempts {
			p.log.Warn("push channel gave up reconnecting, poll loop carries the room", "attempts", attempt-1)
			return
		}
		select {
		case <-time.After(p.backoff.Delay(attempt)):
		case <-ctx.Done():
			return
		}
	}
}

// readPump reads frames until the connection drops or the context is
// cancelled. It never surfaces errors; a dead push channel is not a user
// visible failure.
func (p *push) readPump(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				_ = conn.Close()
				return
			case <-done:
				return
			}
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				p.log.Debug("push channel closed", "error", err)
			}
			return
		}
		event, ok := decodeWire(data)
		if !ok {
			continue
		}
		select {
		case p.events <- event:
		case <-ctx.Done():
			return
		}
	}
}
