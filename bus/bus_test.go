package bus

import (
	"sync"
	"testing"
	"time"
)

var topicSnap = T("env", "snapshot")

func TestBasicPubSub(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(topicSnap)
	conn.Publish(&Message{Topic: topicSnap, Payload: "hello"})

	select {
	case got := <-sub.Channel():
		if got.Payload.(string) != "hello" {
			t.Errorf("expected payload 'hello', got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
}

func TestOtherTopicsNotDelivered(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(topicSnap)
	conn.Publish(&Message{Topic: T("env", "other"), Payload: 1})
	conn.Publish(&Message{Topic: T("env"), Payload: 2})

	select {
	case got := <-sub.Channel():
		t.Fatalf("unexpected delivery: %+v", got)
	default:
	}
}

func TestRetainedMessage(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(&Message{Topic: topicSnap, Payload: "persist", Retained: true})
	if m, ok := b.Retained(topicSnap); !ok || m.Payload != "persist" {
		t.Fatalf("retained lookup = %v, %v", m, ok)
	}

	sub := conn.Subscribe(topicSnap)
	select {
	case got := <-sub.Channel():
		if got.Payload.(string) != "persist" {
			t.Errorf("expected retained payload 'persist', got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for retained message")
	}

	// Nil payload clears the retained slot.
	conn.Publish(&Message{Topic: topicSnap, Retained: true})
	if _, ok := b.Retained(topicSnap); ok {
		t.Fatal("retained message not cleared")
	}
}

func TestFullQueueDropsOldest(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")
	sub := conn.Subscribe(topicSnap)

	for i := 1; i <= 5; i++ {
		conn.Publish(&Message{Topic: topicSnap, Payload: i})
	}

	var got []int
	for len(got) < 2 {
		select {
		case m := <-sub.Channel():
			got = append(got, m.Payload.(int))
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("only received %v", got)
		}
	}
	if got[0] != 4 || got[1] != 5 {
		t.Fatalf("expected newest two [4 5], got %v", got)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")
	sub := conn.Subscribe(topicSnap)

	sub.Unsubscribe()
	sub.Unsubscribe() // idempotent

	if _, ok := <-sub.Channel(); ok {
		t.Fatal("channel still open after Unsubscribe")
	}
	// Publishing after unsubscribe must not panic on the closed channel.
	conn.Publish(&Message{Topic: topicSnap, Payload: 1})
}

func TestDisconnectClosesAll(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("svc")
	s1 := conn.Subscribe(topicSnap)
	s2 := conn.Subscribe(T("config", "heartbeat"))

	conn.Disconnect()

	for _, s := range []*Subscription{s1, s2} {
		if _, ok := <-s.Channel(); ok {
			t.Fatalf("subscription %v still open", s.Topic())
		}
	}
}

func TestConcurrentPublish(t *testing.T) {
	b := NewBus(8)
	conn := b.NewConnection("test")
	sub := conn.Subscribe(topicSnap)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				conn.Publish(&Message{Topic: topicSnap, Payload: i*100 + j})
			}
		}(i)
	}
	wg.Wait()

	n := 0
	for {
		select {
		case <-sub.Channel():
			n++
			continue
		default:
		}
		break
	}
	if n == 0 || n > 8 {
		t.Fatalf("expected 1..8 queued messages, got %d", n)
	}
}
