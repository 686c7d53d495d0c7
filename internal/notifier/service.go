package notifier

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"taskmill/internal/definition"
	"taskmill/pkg/logx"
)

// Config controls the notification pipeline.
type Config struct {
	Enabled    bool
	QueueSize  int
	RatePerSec int
}

// Sink delivers a single rendered notification.
type Sink interface {
	Send(ctx context.Context, text string) error
}

type item struct {
	ownerID      string
	ref          definition.InstanceRef
	definitionID string
}

// Service is an async, rate-limited notification queue. It implements
// definition.Notifier.
type Service struct {
	log  logx.Logger
	cfg  Config
	sink Sink

	limiter *rate.Limiter
	queue   chan item

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, log logx.Logger, sink Sink) *Service {
	qs := cfg.QueueSize
	if qs <= 0 {
		qs = 256
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	return &Service{
		log:     log,
		cfg:     cfg,
		sink:    sink,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		queue:   make(chan item, qs),
	}
}

func (s *Service) Start(ctx context.Context) {
	if !s.cfg.Enabled || s.sink == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker(runCtx)
	}()
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// InstanceCreated enqueues a notification. It never blocks: when the queue
// is full the notification is dropped.
func (s *Service) InstanceCreated(_ context.Context, ownerID string, ref definition.InstanceRef, definitionID string) {
	if !s.cfg.Enabled || s.sink == nil {
		return
	}
	select {
	case s.queue <- item{ownerID: ownerID, ref: ref, definitionID: definitionID}:
	default:
		s.log.Debug("notification dropped (queue full)", logx.String("definition", definitionID))
	}
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case it := <-s.queue:
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
			text := fmt.Sprintf("New task created for %s\ntask: %s\nfrom: %s", it.ownerID, it.ref, it.definitionID)
			if err := s.sink.Send(ctx, text); err != nil {
				s.log.Warn("notification delivery failed",
					logx.String("definition", it.definitionID),
					logx.Err(err))
			}
		}
	}
}

// LogSink records notifications on the logger. Default sink when no
// transport is configured.
type LogSink struct {
	Log logx.Logger
}

func (s LogSink) Send(_ context.Context, text string) error {
	s.Log.Info("notification", logx.String("text", text))
	return nil
}
