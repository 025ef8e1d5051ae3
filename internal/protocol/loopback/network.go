package loopback

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Handler receives a message addressed to a registered address.
type Handler func(from, body string)

type packet struct {
	from, to, body string
}

// Network delivers messages between registered addresses in order on a
// single goroutine. Send never blocks.
type Network struct {
	mu       sync.Mutex
	handlers map[string]Handler
	queue    []packet
	pending  int

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
	log  *logrus.Entry
}

// NewNetwork starts a network. Call Close to stop it.
func NewNetwork() *Network {
	n := &Network{
		handlers: make(map[string]Handler),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		log:      logrus.WithField("component", "loopback_network"),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

// Register routes messages for address to h, replacing any previous handler.
func (n *Network) Register(address string, h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[address] = h
}

// Send queues body from one address to another.
func (n *Network) Send(from, to, body string) {
	n.mu.Lock()
	n.queue = append(n.queue, packet{from: from, to: to, body: body})
	n.pending++
	n.mu.Unlock()

	select {
	case n.wake <- struct{}{}:
	default:
	}
}

func (n *Network) run() {
	defer n.wg.Done()
	for {
		select {
		case <-n.done:
			return
		case <-n.wake:
		}
		for {
			n.mu.Lock()
			if len(n.queue) == 0 {
				n.mu.Unlock()
				break
			}
			p := n.queue[0]
			n.queue = n.queue[1:]
			h := n.handlers[p.to]
			n.mu.Unlock()

			if h == nil {
				n.log.WithFields(logrus.Fields{
					"function": "run",
					"from":     p.from,
					"to":       p.to,
				}).Debug("Dropping message for unknown address")
			} else {
				h(p.from, p.body)
			}

			n.mu.Lock()
			n.pending--
			n.mu.Unlock()
		}
	}
}

// Flush waits until every queued message has been handled, including the
// ones queued by handlers while flushing.
func (n *Network) Flush(ctx context.Context) error {
	t := time.NewTicker(time.Millisecond)
	defer t.Stop()
	for {
		n.mu.Lock()
		idle := n.pending == 0
		n.mu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Close stops delivery. Queued messages are discarded.
func (n *Network) Close() {
	close(n.done)
	n.wg.Wait()
}
