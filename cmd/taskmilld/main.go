package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"taskmill/internal/config"
	"taskmill/internal/eventbus"
	"taskmill/internal/materializer"
	"taskmill/internal/notifier"
	"taskmill/internal/scheduler"
	"taskmill/internal/storage"
	"taskmill/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	bootLog := logx.NewConsole("info")

	cfgMgr := config.NewManager(cfgPath, bootLog)
	cfg, err := cfgMgr.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	defer logSvc.Close()

	busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return err
	}
	store, err := storage.Open(storage.Config{Path: cfg.Storage.Path, BusyTimeout: busyTimeout}, log.With(logx.String("component", "storage")))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	sink, err := buildSink(cfg.Notifier, log)
	if err != nil {
		return err
	}
	notify := notifier.New(notifier.Config{
		Enabled:    cfg.Notifier.Enabled,
		QueueSize:  cfg.Notifier.QueueSize,
		RatePerSec: cfg.Notifier.RatePerSec,
	}, log.With(logx.String("component", "notifier")), sink)
	notify.Start(ctx)

	bus := eventbus.New()
	events, unsubscribe := bus.Subscribe(64)
	defer unsubscribe()
	go watchEvents(ctx, events, log.With(logx.String("component", "events")))

	batch := materializer.New(
		materializer.Config{Workers: cfg.Materializer.Workers},
		log.With(logx.String("component", "materializer")),
		store, store, notify, bus,
	)

	timeout, err := config.ParseDurationOrDefault("materializer.timeout", cfg.Materializer.Timeout, 30*time.Second)
	if err != nil {
		return err
	}
	spec := cfg.Materializer.Schedule
	if spec == "" {
		spec = "@every 1m"
	}
	trigger := scheduler.New(scheduler.Config{
		Enabled: cfg.Materializer.Enabled,
		Spec:    spec,
		Timeout: timeout,
	}, log.With(logx.String("component", "scheduler")))

	if err := trigger.Start(ctx, func(runCtx context.Context) error {
		_, err := batch.ProcessDue(runCtx, time.Now().UTC())
		return err
	}); err != nil {
		return fmt.Errorf("start trigger: %w", err)
	}

	// Hot-apply logging changes; everything else needs a restart.
	if err := cfgMgr.Watch(ctx, func(c *config.Config) {
		logSvc.Apply(logx.Config{
			Level:   c.Logging.Level,
			Console: c.Logging.Console,
			File: logx.FileConfig{
				Enabled: c.Logging.File.Enabled,
				Path:    c.Logging.File.Path,
			},
		})
	}); err != nil {
		log.Warn("config watch unavailable", logx.Err(err))
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	log.Info("taskmill started", logx.String("config", cfgPath), logx.String("schedule", spec))

	<-ctx.Done()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	trigger.Stop(stopCtx)
	notify.Stop(stopCtx)
	log.Info("taskmill stopped")
	return nil
}

// watchEvents drains the engine's event bus for operator diagnostics.
// The materializer already logs its own progress; this surfaces the
// lifecycle signals that matter between batch runs.
func watchEvents(ctx context.Context, events <-chan eventbus.Event, log logx.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case eventbus.TypeInstanceCreated:
				if data, ok := ev.Data.(eventbus.InstanceEvent); ok {
					log.Debug("instance created",
						logx.String("definition", data.DefinitionID),
						logx.String("instance", data.InstanceRef))
				}
			case eventbus.TypeDefinitionExhausted:
				if data, ok := ev.Data.(eventbus.InstanceEvent); ok {
					log.Info("definition exhausted",
						logx.String("definition", data.DefinitionID),
						logx.String("owner", data.OwnerID))
				}
			case eventbus.TypeBatchCompleted:
				if data, ok := ev.Data.(eventbus.BatchEvent); ok && data.Errors > 0 {
					log.Warn("batch finished with failures",
						logx.Int("processed", data.Processed),
						logx.Int("errors", data.Errors))
				}
			}
		}
	}
}

func buildSink(cfg config.NotifierConfig, log logx.Logger) (notifier.Sink, error) {
	if cfg.Telegram != nil {
		sink, err := notifier.NewTelegramSink(notifier.TelegramConfig{
			Token:  cfg.Telegram.Token,
			ChatID: cfg.Telegram.ChatID,
		})
		if err != nil {
			return nil, fmt.Errorf("telegram sink: %w", err)
		}
		return sink, nil
	}
	return notifier.LogSink{Log: log.With(logx.String("component", "notifier"))}, nil
}
