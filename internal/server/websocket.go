package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zeusync/sentry/internal/core/observability/log"
	"github.com/zeusync/sentry/internal/core/simulation"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

type viewer struct {
	conn *websocket.Conn
	// holds at most the newest unsent snapshot
	send chan []byte
}

// Feed fans simulation snapshots out to websocket viewers. A slow viewer only ever misses
// intermediate snapshots; it never delays the simulation.
type Feed struct {
	cfg Config
	log log.Log

	mu      sync.Mutex
	viewers map[*viewer]struct{}
	latest  []byte
	sentAt  time.Time
	closed  bool
}

func NewFeed(cfg Config, l log.Log) *Feed {
	if l == nil {
		l = log.Nop()
	}
	return &Feed{
		cfg:     cfg,
		log:     l,
		viewers: make(map[*viewer]struct{}),
	}
}

// Publish encodes the snapshot and hands it to every viewer, unless the previous one went out
// less than Interval ago. It never blocks.
func (f *Feed) Publish(snap simulation.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	now := time.Now()
	if f.latest != nil && now.Sub(f.sentAt) < f.cfg.Interval {
		return
	}
	b, err := json.Marshal(snap)
	if err != nil {
		f.log.Error("snapshot encoding failed", log.Error(err))
		return
	}
	f.latest = b
	f.sentAt = now
	for v := range f.viewers {
		offer(v.send, b)
	}
}

func offer(ch chan []byte, b []byte) {
	for {
		select {
		case ch <- b:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Viewers is the number of connected viewers.
func (f *Feed) Viewers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.viewers)
}

// Close disconnects every viewer and rejects new ones.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for v := range f.viewers {
		close(v.send)
		delete(f.viewers, v)
	}
}

func (f *Feed) register(conn *websocket.Conn) (*viewer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrServerClosed
	}
	if f.cfg.MaxClients > 0 && len(f.viewers) >= f.cfg.MaxClients {
		return nil, ErrMaxClientsReached
	}
	v := &viewer{conn: conn, send: make(chan []byte, 1)}
	if f.latest != nil {
		v.send <- f.latest
	}
	f.viewers[v] = struct{}{}
	return v, nil
}

func (f *Feed) unregister(v *viewer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.viewers[v]; ok {
		delete(f.viewers, v)
		close(v.send)
	}
}

func (f *Feed) full() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed || (f.cfg.MaxClients > 0 && len(f.viewers) >= f.cfg.MaxClients)
}

// ServeHTTP upgrades the request and streams snapshots until the viewer goes away.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.full() {
		http.Error(w, ErrMaxClientsReached.Error(), http.StatusServiceUnavailable)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Warn("websocket upgrade failed", log.Error(err))
		return
	}
	v, err := f.register(conn)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
		_ = conn.Close()
		return
	}
	remote := conn.RemoteAddr().String()
	f.log.Info("viewer connected", log.String("remote", remote))

	go f.writeLoop(v, remote)

	// viewers only listen; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	f.unregister(v)
	f.log.Info("viewer disconnected", log.String("remote", remote))
}

func (f *Feed) writeLoop(v *viewer, remote string) {
	defer v.conn.Close()
	for b := range v.send {
		if f.cfg.WriteTimeout > 0 {
			_ = v.conn.SetWriteDeadline(time.Now().Add(f.cfg.WriteTimeout))
		}
		if err := v.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			f.log.Warn("viewer write failed", log.String("remote", remote), log.Error(err))
			return
		}
	}
	_ = v.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
