package materializer

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"taskmill/internal/definition"
	"taskmill/internal/eventbus"
	"taskmill/internal/recurrence"
	"taskmill/pkg/logx"
)

// Config controls the batch pass.
type Config struct {
	// Workers bounds the per-definition parallelism. Definitions are
	// independent units of work; each one's read-modify-write runs on a
	// single worker. Defaults to 2.
	Workers int
}

// Report is the aggregate outcome of one batch pass. It is always returned;
// per-definition failures are counted, never propagated.
type Report struct {
	Processed int
	Created   int
	Errors    int
}

// Service materializes due definitions into concrete task instances.
type Service struct {
	cfg Config
	log logx.Logger

	defs      definition.DefinitionStore
	instances definition.InstanceStore
	notify    definition.Notifier
	bus       eventbus.Bus
}

func New(cfg Config, log logx.Logger, defs definition.DefinitionStore, instances definition.InstanceStore, notify definition.Notifier, bus eventbus.Bus) *Service {
	return &Service{cfg: cfg, log: log, defs: defs, instances: instances, notify: notify, bus: bus}
}

// ProcessDue runs a single logical pass over all due definitions at now.
// It is intended to be invoked by an external trigger; overlapping
// invocations are the caller's concern, but per-definition idempotency means
// at-least-once invocation never double-materializes.
func (s *Service) ProcessDue(ctx context.Context, now time.Time) (Report, error) {
	start := time.Now()

	due, err := s.defs.FindDue(ctx, now)
	if err != nil {
		return Report{}, fmt.Errorf("find due definitions: %w", err)
	}
	if len(due) == 0 {
		s.log.Debug("no due definitions")
		return Report{}, nil
	}

	workers := s.cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	if workers > len(due) {
		workers = len(due)
	}

	var created, failed atomic.Int64
	jobs := make(chan *definition.Definition)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for d := range jobs {
				if err := s.safeProcess(ctx, d, now); err != nil {
					failed.Add(1)
					s.log.Warn("definition failed", logx.String("definition", d.ID), logx.Err(err))
					continue
				}
				created.Add(1)
			}
		}()
	}

	for _, d := range due {
		jobs <- d
	}
	close(jobs)
	wg.Wait()

	report := Report{
		Processed: len(due),
		Created:   int(created.Load()),
		Errors:    int(failed.Load()),
	}
	took := time.Since(start)
	s.log.Info("batch completed",
		logx.Int("processed", report.Processed),
		logx.Int("created", report.Created),
		logx.Int("errors", report.Errors),
		logx.Duration("took", took))
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeBatchCompleted, Data: eventbus.BatchEvent{
			Processed: report.Processed,
			Created:   report.Created,
			Errors:    report.Errors,
			Took:      took,
		}})
	}
	return report, nil
}

func (s *Service) safeProcess(ctx context.Context, d *definition.Definition, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.log.Error("panic while materializing",
				logx.String("definition", d.ID),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
		}
	}()
	return s.processOne(ctx, d, now)
}

// processOne materializes a single definition: project, create the instance,
// advance the schedule, save. A failure at any step leaves NextRun unchanged
// so the definition stays eligible for the next pass.
func (s *Service) processOne(ctx context.Context, d *definition.Definition, now time.Time) error {
	payload, err := definition.Project(d, now)
	if err != nil {
		return err
	}

	ref, err := s.instances.Create(ctx, payload)
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}

	lastCreated := now
	d.LastCreated = &lastCreated

	// Advance from the just-used anchor. Exhaustion deactivates; a stalled
	// schedule is an invariant breach and deactivates too, otherwise the
	// definition would re-materialize on every pass.
	next, nerr := recurrence.Next(payload.ScheduledFor, d.Pattern)
	switch {
	case errors.Is(nerr, recurrence.ErrNoFutureOccurrence):
		d.Active = false
		d.NextRun = nil
		s.log.Info("definition exhausted", logx.String("definition", d.ID))
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{Type: eventbus.TypeDefinitionExhausted, Data: eventbus.InstanceEvent{
				DefinitionID: d.ID,
				OwnerID:      d.OwnerID,
			}})
		}
	case nerr != nil:
		d.Active = false
		d.NextRun = nil
		s.log.Error("schedule stalled; definition deactivated", logx.String("definition", d.ID), logx.Err(nerr))
	default:
		d.NextRun = &next
	}
	d.UpdatedAt = now

	if err := s.defs.Save(ctx, d); err != nil {
		return fmt.Errorf("save definition: %w", err)
	}

	if s.notify != nil {
		s.notify.InstanceCreated(ctx, d.OwnerID, ref, d.ID)
	}
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeInstanceCreated, Data: eventbus.InstanceEvent{
			DefinitionID: d.ID,
			OwnerID:      d.OwnerID,
			InstanceRef:  string(ref),
		}})
	}
	return nil
}
