// Package scheduler triggers the batch materializer on a configurable
// cadence.
//
// The trigger accepts cron expressions (5-field or 6-field with seconds),
// cron descriptors ("@hourly", "@every 1m"), and plain Go durations ("30s").
// Runs are gated with a skip-if-running policy: the engine exposes
// idempotent per-definition steps, but there is no point stacking passes.
package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"taskmill/pkg/logx"
)

// Config controls the trigger.
type Config struct {
	Enabled bool
	// Spec is the trigger cadence: cron, "@every ...", or a Go duration.
	Spec string
	// Timeout bounds each run; 0 disables the per-run timeout.
	Timeout time.Duration
}

// Service wraps a single cron entry that invokes the registered job.
type Service struct {
	mu  sync.Mutex
	log logx.Logger
	cfg Config

	parser  cron.Parser
	c       *cron.Cron
	running bool
}

func New(cfg Config, log logx.Logger) *Service {
	return &Service{
		cfg: cfg,
		log: log,
		// SecondOptional allows both 5-field and 6-field (with seconds) specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Start registers job under the configured spec and starts the trigger.
// The scheduler always evaluates in UTC; the engine assumes dates normalized
// to a single reference clock.
func (s *Service) Start(ctx context.Context, job func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Enabled {
		s.log.Debug("trigger disabled")
		return nil
	}
	if s.c != nil {
		return errors.New("trigger already started")
	}
	if job == nil {
		return errors.New("job is nil")
	}

	spec, err := NormalizeSpec(s.cfg.Spec)
	if err != nil {
		return err
	}
	if _, err := s.parser.Parse(spec); err != nil {
		return err
	}

	timeout := s.cfg.Timeout
	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(time.UTC))
	_, err = c.AddFunc(spec, func() {
		s.mu.Lock()
		if s.running {
			s.mu.Unlock()
			s.log.Debug("batch skipped (previous run still running)")
			return
		}
		s.running = true
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()

		runCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		if err := job(runCtx); err != nil {
			s.log.Error("batch run failed", logx.Err(err))
		}
		if cancel != nil {
			cancel()
		}
	})
	if err != nil {
		return err
	}

	s.c = c
	c.Start()
	s.log.Info("trigger started", logx.String("spec", spec))
	return nil
}

// Stop halts the trigger and waits for an in-flight run to return, or for
// ctx to expire.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("trigger stopped")
}

// NormalizeSpec turns a raw cadence string into a cron-parseable spec.
// Plain Go durations become "@every d"; everything else passes through.
func NormalizeSpec(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("schedule spec is empty")
	}
	if d, err := time.ParseDuration(raw); err == nil {
		if d <= 0 {
			return "", errors.New("schedule interval must be positive")
		}
		return "@every " + d.String(), nil
	}
	return raw, nil
}
