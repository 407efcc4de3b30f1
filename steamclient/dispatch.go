package steamclient

import (
	"context"
	"sync"
)

// dispatcher fans incoming packets out to subscribers registered by EMsg tag
// plus an optional predicate, in addition to the client's fixed On* callback
// fields. Delivery preserves wire order per tag: handlePacket calls publish
// synchronously from readLoop, so subscribers for the same tag see frames in
// the order they arrived. Each subscriber gets its own buffered channel, so
// one slow or failing subscriber never blocks its siblings.
type dispatcher struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscription
	closed bool
}

type subscription struct {
	tag       EMsg
	predicate func(*Packet) bool
	ch        chan *Packet
}

func newDispatcher() *dispatcher {
	return &dispatcher{subs: make(map[int]*subscription)}
}

// Subscribe registers interest in packets matching tag (and, if predicate is
// non-nil, satisfying predicate too). The returned channel is buffered so a
// single pending frame never blocks publish; callers that need to retain
// every frame should drain it promptly. Call Unsubscribe(id) when done.
func (d *dispatcher) Subscribe(tag EMsg, predicate func(*Packet) bool) (id int, ch <-chan *Packet) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sub := &subscription{tag: tag, predicate: predicate, ch: make(chan *Packet, 8)}
	d.nextID++
	id = d.nextID
	d.subs[id] = sub
	if d.closed {
		close(sub.ch)
	}
	return id, sub.ch
}

// Unsubscribe detaches a subscriber. Safe to call more than once.
func (d *dispatcher) Unsubscribe(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.subs, id)
}

// publish delivers pkt to every subscriber whose tag (and predicate, if set)
// matches. A panicking predicate is recovered and logged by the caller's
// logger; it is treated as "no match" and does not stop delivery to the
// other subscribers.
func (d *dispatcher) publish(logger interface {
	Error(msg string, args ...any)
}, pkt *Packet) {
	d.mu.Lock()
	matches := make([]*subscription, 0, len(d.subs))
	for _, sub := range d.subs {
		if sub.tag != pkt.EMsg {
			continue
		}
		if !safePredicate(logger, sub, pkt) {
			continue
		}
		matches = append(matches, sub)
	}
	d.mu.Unlock()

	for _, sub := range matches {
		select {
		case sub.ch <- pkt:
		default:
			logger.Error("dispatcher: subscriber channel full, dropping frame", "tag", int(pkt.EMsg))
		}
	}
}

func safePredicate(logger interface {
	Error(msg string, args ...any)
}, sub *subscription, pkt *Packet) (matched bool) {
	if sub.predicate == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("dispatcher: subscriber predicate panicked", "recovered", r)
			matched = false
		}
	}()
	return sub.predicate(pkt)
}

// closeAll detaches every subscriber, closing their channels so blocked
// receivers unblock with a closed read. Called once per connection
// lifecycle when the client disconnects.
func (d *dispatcher) closeAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for id, sub := range d.subs {
		close(sub.ch)
		delete(d.subs, id)
	}
}

// waitFor is a one-shot helper on top of the generic table: it subscribes,
// waits for the first matching packet (or ctx/disconnect), and unsubscribes
// regardless of outcome.
func (c *Client) waitFor(ctx context.Context, tag EMsg, predicate func(*Packet) bool) (*Packet, error) {
	id, ch := c.dispatcher.Subscribe(tag, predicate)
	defer c.dispatcher.Unsubscribe(id)

	select {
	case pkt, ok := <-ch:
		if !ok {
			return nil, ErrDisconnected
		}
		return pkt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrDisconnected
	}
}
