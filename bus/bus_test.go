// bus/bus_test.go
package bus

import (
	"testing"
	"time"
)

func expectPayload(t *testing.T, sub *Subscription, want any) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		if got.Payload != want {
			t.Errorf("expected payload %v, got %v", want, got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for payload %v", want)
	}
}

func expectNoMessage(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		t.Fatalf("unexpected message: %v", got.Payload)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBasicPubSub(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("config", "detector"))

	conn.Publish(conn.NewMessage(T("config", "detector"), "hello", false))
	expectPayload(t, sub, "hello")
}

func TestRetainedMessage(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T("config", "night"), "persist", true))

	sub := conn.Subscribe(T("config", "night"))
	expectPayload(t, sub, "persist")
}

func TestRetainedClear(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T("env", "reading"), "r1", true))
	conn.Publish(conn.NewMessage(T("env", "reading"), nil, true))

	sub := conn.Subscribe(T("env", "reading"))
	expectNoMessage(t, sub)
}

func TestWildcard_SingleLevel(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	s1 := c.Subscribe(T("a", "+", "c"))
	s2 := c.Subscribe(T("a", "+", "+"))
	sNo := c.Subscribe(T("a", "+", "d"))

	c.Publish(b.NewMessage(T("a", "b", "c"), "m1", false))

	expectPayload(t, s1, "m1")
	expectPayload(t, s2, "m1")
	expectNoMessage(t, sNo)

	// Shorter topic must not match three-level patterns.
	c.Publish(b.NewMessage(T("a", "c"), "m2", false))
	expectNoMessage(t, s1)
	expectNoMessage(t, s2)
}

func TestWildcard_MultiLevel(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	sAHash := c.Subscribe(T("a", "#"))
	sHash := c.Subscribe(T("#"))
	sAExact := c.Subscribe(T("a"))

	c.Publish(b.NewMessage(T("a"), "p1", false))
	expectPayload(t, sAHash, "p1")
	expectPayload(t, sHash, "p1")
	expectPayload(t, sAExact, "p1")

	c.Publish(b.NewMessage(T("a", "b", "c"), "p2", false))
	expectPayload(t, sAHash, "p2")
	expectPayload(t, sHash, "p2")
	expectNoMessage(t, sAExact)
}

func TestWildcard_RetainedDelivery(t *testing.T) {
	b := NewBus(32)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(T("trap", "status"), "r0", true))
	c.Publish(b.NewMessage(T("trap", "events"), "r1", true))

	sub := c.Subscribe(T("trap", "+"))
	got := map[any]bool{}
	for i := 0; i < 2; i++ {
		select {
		case m := <-sub.Channel():
			got[m.Payload] = true
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for retained replay")
		}
	}
	if !got["r0"] || !got["r1"] {
		t.Errorf("missing retained replays: %v", got)
	}
}

func TestReply(t *testing.T) {
	b := NewBus(4)
	server := b.NewConnection("server")
	client := b.NewConnection("client")

	reqSub := server.Subscribe(T("store", "control", "status"))
	rspSub := client.Subscribe(T("reply", 1))

	client.Publish(&Message{
		Topic:   T("store", "control", "status"),
		Payload: "req",
		ReplyTo: T("reply", 1),
	})

	select {
	case req := <-reqSub.Channel():
		if !req.CanReply() {
			t.Fatal("request should carry reply topic")
		}
		server.Reply(req, "rsp", false)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for request")
	}

	expectPayload(t, rspSub, "rsp")
}

func TestIntTokens(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")

	sub := c.Subscribe(T("event", 42))
	c.Publish(b.NewMessage(T("event", 42), "e", false))
	expectPayload(t, sub, "e")

	if got := sub.Topic().At(1); got != 42 {
		t.Errorf("At(1) = %v, want 42", got)
	}
}

func TestDropOldestOnFullQueue(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")

	sub := c.Subscribe(T("x"))
	for i := 0; i < 5; i++ {
		c.Publish(b.NewMessage(T("x"), i, false))
	}

	// Queue length is 2; the two newest survive.
	expectPayload(t, sub, 3)
	expectPayload(t, sub, 4)
}
