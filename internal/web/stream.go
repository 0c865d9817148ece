// internal/web/stream.go
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"plcview/internal/metrics"
)

// Broker fans updates out to any number of SSE subscribers.
// Broadcast never blocks: a subscriber that cannot keep up misses
// updates instead of stalling the feeder.
type Broker struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[chan []byte]struct{})}
}

func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 8)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *Broker) Broadcast(p []byte) {
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- p:
		default:
		}
	}
	b.mu.Unlock()
}

func (b *Broker) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// streamUpdate is one SSE frame: the latest sample per signal plus
// device health. Enough for a dashboard to stay current without
// re-fetching history.
type streamUpdate struct {
	At     int64             `json:"at"` // epoch millis
	Latest map[string]point  `json:"latest"`
	Health map[string]string `json:"health"`
}

func (s *Server) updatePayload() ([]byte, error) {
	upd := streamUpdate{
		At:     time.Now().UnixMilli(),
		Latest: make(map[string]point),
		Health: healthLabels(s.view.Health()),
	}
	for _, ds := range s.view.Signals() {
		for _, sig := range ds.Signals {
			smp, err := s.view.Latest(sig.Name)
			if err != nil {
				continue // nothing recorded yet
			}
			upd.Latest[sig.Name] = toPoint(smp)
		}
	}
	return json.Marshal(upd)
}

// feedLoop ticks at the stream interval and broadcasts a fresh frame
// while anyone is listening.
func (s *Server) feedLoop(ctx context.Context) {
	ticker := time.NewTicker(s.stream)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.broker.Count() == 0 {
				continue
			}
			p, err := s.updatePayload()
			if err != nil {
				s.log.Printf("stream payload: %v", err)
				continue
			}
			s.broker.Broadcast(p)
		}
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.broker.Subscribe()
	defer s.broker.Unsubscribe(ch)
	metrics.IncStreamClients()
	defer metrics.DecStreamClients()

	// First frame right away so a fresh page shows data before the
	// next tick.
	if p, err := s.updatePayload(); err == nil {
		fmt.Fprintf(w, "event: update\ndata: %s\n\n", p)
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case p, open := <-ch:
			if !open {
				return
			}
			fmt.Fprintf(w, "event: update\ndata: %s\n\n", p)
			flusher.Flush()
		}
	}
}
