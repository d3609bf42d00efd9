// Package bus is a small in-process publish/subscribe hub used to fan
// completed sensor snapshots out to background services.
package bus

import (
	"strings"
	"sync"
)

// Topic is a path such as {"env", "snapshot"}.
type Topic []string

// T builds a topic from its elements.
func T(parts ...string) Topic { return Topic(parts) }

func (t Topic) key() string { return strings.Join(t, "/") }

func (t Topic) String() string { return t.key() }

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu       sync.Mutex
	subs     map[string][]*Subscription
	retained map[string]*Message
	qLen     int
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{
		subs:     make(map[string][]*Subscription),
		retained: make(map[string]*Message),
		qLen:     queueLen,
	}
}

// Publish delivers msg to every subscriber of its topic. A full subscriber
// queue drops its oldest message; publishers never block.
func (b *Bus) Publish(msg *Message) {
	k := msg.Topic.key()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs[k] {
		deliver(sub.ch, msg)
	}
	if msg.Retained {
		if msg.Payload == nil {
			delete(b.retained, k)
		} else {
			b.retained[k] = msg
		}
	}
}

// Retained returns the retained message for topic, if any.
func (b *Bus) Retained(topic Topic) (*Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.retained[topic.key()]
	return m, ok
}

func deliver(ch chan *Message, msg *Message) {
	for {
		select {
		case ch <- msg:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (b *Bus) add(sub *Subscription) {
	k := sub.topic.key()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[k] = append(b.subs[k], sub)
	if m, ok := b.retained[k]; ok {
		deliver(sub.ch, m)
	}
}

// remove reports whether sub was still registered.
func (b *Bus) remove(sub *Subscription) bool {
	k := sub.topic.key()

	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[k]
	for i, s := range list {
		if s == sub {
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				delete(b.subs, k)
			} else {
				b.subs[k] = list
			}
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

// Connection groups the subscriptions of one service so they can be closed
// together.
type Connection struct {
	bus  *Bus
	id   string
	mu   sync.Mutex
	subs []*Subscription
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	c.bus.add(sub)
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call twice.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	if c.bus.remove(sub) {
		close(sub.ch)
	}
}

// Disconnect closes all subscriptions of this connection.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		if c.bus.remove(sub) {
			close(sub.ch)
		}
	}
}
