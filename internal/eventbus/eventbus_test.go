package eventbus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	defer b.Close()
	sub := b.Subscribe()
	b.Publish("hello")
	select {
	case e := <-sub:
		if e != "hello" {
			t.Fatalf("unexpected event %v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPublishAfterClose(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	b.Close()
	b.Publish("late")
	if _, ok := <-sub; ok {
		t.Fatal("expected closed channel")
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	defer b.Close()
	sub := b.Subscribe()
	b.Unsubscribe(sub)
	b.Publish("dropped")
	if _, ok := <-sub; ok {
		t.Fatal("expected closed channel after unsubscribe")
	}
}

func TestNilSafePublish(t *testing.T) {
	Publish(nil, "ignored") // must not panic
}
