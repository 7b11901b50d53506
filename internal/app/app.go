// Package app wires the config manager, logging, storage, fetcher, tracker
// and chat layer together and owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"arissbot/internal/ariss"
	"arissbot/internal/bot"
	"arissbot/internal/config"
	"arissbot/internal/sched"
	"arissbot/internal/storage"
	"arissbot/internal/track"
	logx "arissbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service

	store  storage.Store
	runner *sched.Runner
	bot    *bot.Bot

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New loads the config at cfgPath and builds the full service graph. Nothing
// runs until Start.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	cleanup := func() {
		_ = store.Close()
		_ = logSvc.Close()
	}

	fetchTimeout, err := config.ParseDurationOrDefault("tracker.fetch_timeout", cfg.Tracker.FetchTimeout, 10*time.Second)
	if err != nil {
		cleanup()
		return nil, err
	}
	inactiveAfter, err := config.ParseDurationOrDefault("tracker.inactive_after", cfg.Tracker.InactiveAfter, 6*time.Hour)
	if err != nil {
		cleanup()
		return nil, err
	}
	trackInterval, err := config.ParseDurationOrDefault("tracker.track_interval", cfg.Tracker.TrackInterval, 60*time.Second)
	if err != nil {
		cleanup()
		return nil, err
	}
	watchInterval, err := config.ParseDurationOrDefault("tracker.watch_interval", cfg.Tracker.WatchInterval, 5*time.Second)
	if err != nil {
		cleanup()
		return nil, err
	}
	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		cleanup()
		return nil, err
	}

	client := ariss.NewClient(ariss.ClientConfig{
		URL:     cfg.Tracker.URL,
		Timeout: fetchTimeout,
	}, log.With(logx.String("comp", "ariss")))

	svc := track.New(track.Config{
		DefaultGap: inactiveAfter,
	}, client, store, log.With(logx.String("comp", "track")))
	runner := sched.New(log.With(logx.String("comp", "sched")))

	b, err := bot.New(bot.Config{
		Token:          cfg.Telegram.Token,
		PollTimeout:    pollTimeout,
		SendRatePerSec: float64(cfg.Telegram.SendRatePerSec),
		TrackInterval:  trackInterval,
		WatchInterval:  watchInterval,
	}, svc, runner, store, log.With(logx.String("comp", "bot")))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}

	return &App{
		cfgm:   cfgm,
		log:    log,
		logs:   logSvc,
		store:  store,
		runner: runner,
		bot:    b,
	}, nil
}

// Start brings the app up: scheduler, Telegram polling, and the config
// watcher. Logging settings follow config hot reloads; structural settings
// (token, storage driver, intervals) require a restart.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	a.runner.Start()
	if err := a.bot.Start(ctx); err != nil {
		a.runner.Stop(context.Background())
		return err
	}

	updates := a.cfgm.Subscribe(1)
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(ctx); err != nil {
			a.log.Warn("config watcher stopped", logx.Err(err))
		}
	}()
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(updates)
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-updates:
				if !ok {
					return
				}
				a.logs.Apply(logx.Config{
					Level:   cfg.Logging.Level,
					Console: cfg.Logging.Console,
					File: logx.FileConfig{
						Enabled: cfg.Logging.File.Enabled,
						Path:    cfg.Logging.File.Path,
					},
				})
				a.log.Info("logging config applied")
			}
		}
	}()

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("sd_notify failed", logx.Err(err))
	} else if sent {
		a.log.Debug("sd_notify ready sent")
	}
	a.log.Info("started")
	return nil
}

// Stop shuts the app down in reverse start order, bounded by ctx.
func (a *App) Stop(ctx context.Context) {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.cancel != nil {
		a.cancel()
	}
	a.bot.Stop()
	a.runner.Stop(ctx)
	a.wg.Wait()

	if err := a.store.Close(); err != nil {
		a.log.Warn("store close failed", logx.Err(err))
	}
	a.log.Info("stopped")
	_ = a.logs.Close()
}
