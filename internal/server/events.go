package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

const clientBuffer = 16

type event struct {
	name string
	data any
}

// broker fans events out to connected stream clients. A client that falls
// behind loses events rather than blocking the publisher.
type broker struct {
	mu      sync.Mutex
	clients map[chan event]struct{}
	closed  bool
}

func newBroker() *broker {
	return &broker{clients: make(map[chan event]struct{})}
}

func (b *broker) join() (<-chan event, func()) {
	ch := make(chan event, clientBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.clients[ch] = struct{}{}

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.clients[ch]; ok {
			delete(b.clients, ch)
			close(ch)
		}
	}
}

func (b *broker) publish(name string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.clients {
		select {
		case ch <- event{name: name, data: data}:
		default:
			slog.Debug("Dropping event for slow client", "event", name)
		}
	}
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for ch := range b.clients {
		delete(b.clients, ch)
		close(ch)
	}
}

func writeEvent(w io.Writer, ev event) error {
	data, err := json.Marshal(ev.data)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", ev.name, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, data)
	return err
}
