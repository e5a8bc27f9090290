package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/banshee-data/repcount/internal/motion"
)

// clientBuffer is how many results a slow SSE client may lag before results
// are dropped for it.
const clientBuffer = 32

// Broadcaster fans results out to connected SSE clients. It implements
// pipeline.PublishSink; Publish never blocks.
type Broadcaster struct {
	mu      sync.Mutex
	nextID  int
	clients map[int]chan motion.Result
	closed  bool

	dropped atomic.Uint64
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[int]chan motion.Result)}
}

// Subscribe registers a client. The channel is closed by Unsubscribe or
// Close.
func (b *Broadcaster) Subscribe() (int, <-chan motion.Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan motion.Result, clientBuffer)
	if b.closed {
		close(ch)
		return -1, ch
	}
	id := b.nextID
	b.nextID++
	b.clients[id] = ch
	return id, ch
}

func (b *Broadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.clients[id]; ok {
		close(ch)
		delete(b.clients, id)
	}
}

// Publish delivers r to every client with room for it.
func (b *Broadcaster) Publish(r motion.Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.clients {
		select {
		case ch <- r:
		default:
			if n := b.dropped.Add(1); n == 1 || n%1000 == 0 {
				opsf("dropped %d results for slow event clients", n)
			}
		}
	}
}

// Clients returns the number of connected clients.
func (b *Broadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Close disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.clients {
		close(ch)
		delete(b.clients, id)
	}
}

func writeEvent(w http.ResponseWriter, r motion.Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: result\ndata: %s\n\n", data)
	return err
}

// streamEvents serves results as Server-Sent Events, starting with the
// current snapshot so a new client renders immediately.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSONError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	id, ch := s.events.Subscribe()
	defer s.events.Unsubscribe(id)
	diagf("event client %d connected from %s", id, r.RemoteAddr)

	if err := writeEvent(w, s.session.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case res, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(w, res); err != nil {
				tracef("event client %d write failed: %v", id, err)
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			diagf("event client %d disconnected", id)
			return
		}
	}
}
