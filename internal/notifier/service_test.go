package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskmill/pkg/logx"
)

type recordingSink struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *recordingSink) Send(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, text)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

func TestNotifierDelivers(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}
	svc := New(Config{Enabled: true, RatePerSec: 100}, logx.Nop(), sink)
	svc.Start(context.Background())
	defer svc.Stop(context.Background())

	svc.InstanceCreated(context.Background(), "owner-1", "inst-1", "d1")
	waitFor(t, func() bool { return sink.count() == 1 })
}

func TestNotifierDisabledDropsSilently(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}
	svc := New(Config{Enabled: false}, logx.Nop(), sink)
	svc.Start(context.Background())

	svc.InstanceCreated(context.Background(), "owner-1", "inst-1", "d1")
	svc.Stop(context.Background())
	if sink.count() != 0 {
		t.Fatalf("sent %d notifications while disabled", sink.count())
	}
}

func TestNotifierQueueFullDrops(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}
	// Never started: nothing drains the queue.
	svc := New(Config{Enabled: true, QueueSize: 1}, logx.Nop(), sink)

	svc.InstanceCreated(context.Background(), "owner-1", "inst-1", "d1")
	svc.InstanceCreated(context.Background(), "owner-1", "inst-2", "d1")
	if len(svc.queue) != 1 {
		t.Fatalf("queue depth = %d, want 1 (second enqueue dropped)", len(svc.queue))
	}
}

func TestNotifierSinkErrorDoesNotStopWorker(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{err: errors.New("transport down")}
	svc := New(Config{Enabled: true, RatePerSec: 100}, logx.Nop(), sink)
	svc.Start(context.Background())
	defer svc.Stop(context.Background())

	svc.InstanceCreated(context.Background(), "owner-1", "inst-1", "d1")
	waitFor(t, func() bool { return len(svc.queue) == 0 })

	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()
	svc.InstanceCreated(context.Background(), "owner-1", "inst-2", "d1")
	waitFor(t, func() bool { return sink.count() >= 1 })
}

func TestTelegramSinkRequiresToken(t *testing.T) {
	t.Parallel()
	if _, err := NewTelegramSink(TelegramConfig{ChatID: 1}); err == nil {
		t.Fatal("expected error for empty token")
	}
	if _, err := NewTelegramSink(TelegramConfig{Token: "x"}); err == nil {
		t.Fatal("expected error for missing chat id")
	}
}
