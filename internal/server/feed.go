package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"cropsense/internal/advisor"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	feedBuffer       = 64
	feedWriteTimeout = 5 * time.Second
)

// feedConn is the part of a WebSocket connection the broadcaster writes to.
type feedConn interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Feed streams every served recommendation to connected WebSocket clients.
type Feed struct {
	upgrader  websocket.Upgrader
	clients   map[feedConn]bool
	clientsMu sync.RWMutex
	broadcast chan []byte
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewFeed starts the broadcaster. Close stops it.
func NewFeed() *Feed {
	f := &Feed{
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:   make(map[feedConn]bool),
		broadcast: make(chan []byte, feedBuffer),
		stop:      make(chan struct{}),
	}
	go f.run()
	return f
}

// Publish queues rec for delivery. It never blocks the request path: when
// the buffer is full the message is dropped.
func (f *Feed) Publish(rec *advisor.Recommendation) {
	data, err := json.Marshal(rec)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal recommendation for feed")
		return
	}
	select {
	case f.broadcast <- data:
	case <-f.stop:
	default:
		log.Warn().Msg("Recommendation feed full, dropping message")
	}
}

// Clients returns the number of connected subscribers.
func (f *Feed) Clients() int {
	f.clientsMu.RLock()
	defer f.clientsMu.RUnlock()
	return len(f.clients)
}

// Close disconnects every client and stops the broadcaster.
func (f *Feed) Close() {
	f.stopOnce.Do(func() {
		close(f.stop)
		f.clientsMu.Lock()
		for c := range f.clients {
			c.Close()
		}
		f.clients = make(map[feedConn]bool)
		f.clientsMu.Unlock()
	})
}

func (f *Feed) run() {
	for {
		select {
		case data := <-f.broadcast:
			f.send(data)
		case <-f.stop:
			return
		}
	}
}

// send is only called from run, so each connection has a single writer.
// Writes happen outside clientsMu so a slow client does not stall
// subscriptions or Clients.
func (f *Feed) send(data []byte) {
	f.clientsMu.RLock()
	conns := make([]feedConn, 0, len(f.clients))
	for c := range f.clients {
		conns = append(conns, c)
	}
	f.clientsMu.RUnlock()

	var failed []feedConn
	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug().Err(err).Msg("Dropping recommendation feed client")
			c.Close()
			failed = append(failed, c)
		}
	}
	if len(failed) == 0 {
		return
	}

	f.clientsMu.Lock()
	for _, c := range failed {
		delete(f.clients, c)
	}
	f.clientsMu.Unlock()
}

// ServeHTTP upgrades the request and holds the connection until the client
// goes away.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	if !f.add(conn) {
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	f.clientsMu.Lock()
	delete(f.clients, conn)
	f.clientsMu.Unlock()
}

// add registers c unless the feed is already closed.
func (f *Feed) add(c feedConn) bool {
	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()
	select {
	case <-f.stop:
		return false
	default:
	}
	f.clients[c] = true
	return true
}
