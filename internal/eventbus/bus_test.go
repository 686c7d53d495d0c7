package eventbus

import (
	"testing"
	"time"
)

func TestPublishDelivers(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(4)
	defer unsub()

	b.Publish(Event{Type: TypeDefinitionExhausted, Data: InstanceEvent{DefinitionID: "d1"}})

	select {
	case ev := <-ch:
		if ev.Type != TypeDefinitionExhausted {
			t.Fatalf("Type = %s, want %s", ev.Type, TypeDefinitionExhausted)
		}
		data, ok := ev.Data.(InstanceEvent)
		if !ok || data.DefinitionID != "d1" {
			t.Fatalf("Data = %#v", ev.Data)
		}
		if ev.Time.IsZero() {
			t.Fatal("expected Time to be stamped")
		}
	case <-time.After(time.Second):
		t.Fatal("event never delivered")
	}
}

func TestPublishFansOut(t *testing.T) {
	t.Parallel()
	b := New()
	ch1, unsub1 := b.Subscribe(1)
	defer unsub1()
	ch2, unsub2 := b.Subscribe(1)
	defer unsub2()

	b.Publish(Event{Type: TypeBatchCompleted, Data: BatchEvent{Processed: 3}})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != TypeBatchCompleted {
				t.Fatalf("subscriber %d: Type = %s", i, ev.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received the event", i)
		}
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	// Nobody drains: the second publish must drop, not block.
	b.Publish(Event{Type: TypeInstanceCreated})
	b.Publish(Event{Type: TypeInstanceCreated})

	if len(ch) != 1 {
		t.Fatalf("buffered events = %d, want 1 (overflow dropped)", len(ch))
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(4)
	unsub()
	unsub() // idempotent

	// Publishing after unsubscribe must not panic on the closed channel.
	b.Publish(Event{Type: TypeInstanceCreated})

	if _, open := <-ch; open {
		t.Fatal("expected channel to be closed after unsubscribe")
	}
}
