// Package stream broadcasts write-path events to websocket subscribers.
package stream

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shardlabs/shardfeed/internal/domain"
)

const (
	// subscriberBuffer is the per-subscriber event queue size. A subscriber
	// that falls this far behind is dropped rather than blocking writes.
	subscriberBuffer = 64

	writeTimeout = 10 * time.Second
)

// Broadcaster fans write-path events out to connected websocket clients. It
// implements domain.EventSink; Publish never blocks the write path.
type Broadcaster struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	conn   *websocket.Conn
	events chan domain.Event
}

// NewBroadcaster creates a broadcaster with no subscribers.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		subs: make(map[*subscriber]struct{}),
	}
}

// Publish queues an event for every connected subscriber. Subscribers with a
// full queue are disconnected.
func (b *Broadcaster) Publish(event domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs {
		select {
		case sub.events <- event:
		default:
			b.logger.Warn("dropping slow event subscriber")
			delete(b.subs, sub)
			close(sub.events)
		}
	}
}

// ServeHTTP upgrades the request to a websocket and streams events until the
// client disconnects.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sub := &subscriber{
		conn:   conn,
		events: make(chan domain.Event, subscriberBuffer),
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()
	b.logger.Info("event subscriber connected", "subscribers", count)

	go b.writePump(sub)
	b.readUntilClosed(sub)
}

func (b *Broadcaster) writePump(sub *subscriber) {
	for event := range sub.events {
		sub.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := sub.conn.WriteJSON(event); err != nil {
			b.logger.Debug("event write failed, dropping subscriber", "error", err)
			b.remove(sub)
			return
		}
	}
	sub.conn.Close()
}

// readUntilClosed drains control frames so pings are answered and a client
// close is noticed promptly.
func (b *Broadcaster) readUntilClosed(sub *subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			b.remove(sub)
			return
		}
	}
}

func (b *Broadcaster) remove(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.events)
	}
	sub.conn.Close()
}
