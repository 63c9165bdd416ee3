package inspect

import (
	"sync"
	"sync/atomic"

	"github.com/vango-dev/throwdown/pkg/wire"
)

// client is one /events subscriber.
type client struct {
	send    chan *wire.Frame
	dropped atomic.Bool
	done    chan struct{}
	once    sync.Once
}

func newClient(buffer int) *client {
	return &client{
		send: make(chan *wire.Frame, buffer),
		done: make(chan struct{}),
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// next marks f as following dropped frames if any were lost.
func (c *client) next(f *wire.Frame) *wire.Frame {
	if !c.dropped.Swap(false) {
		return f
	}
	out := *f
	out.Flags |= wire.FlagDropped
	return &out
}

// hub fans frames out to stream clients without blocking the publisher.
type hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[*client]struct{})}
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *hub) publish(f *wire.Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- f:
		default:
			c.dropped.Store(true)
		}
	}
}

func (h *hub) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}
