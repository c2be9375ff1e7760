// Package app wires config, logging, transport, scheduler, server,
// journal and probe into one runnable daemon.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"isotun/internal/config"
	"isotun/internal/journal"
	"isotun/internal/probe"
	"isotun/internal/scheduler"
	"isotun/internal/server"
	"isotun/internal/telegram"
	"isotun/internal/wire"
	logx "isotun/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	journal *journal.Store
	sched   *scheduler.Service
	srv     *server.Server
	probe   *probe.Service

	watchCancel context.CancelFunc
	watchWG     sync.WaitGroup
}

// New loads the config and builds every component. handler may be nil;
// packets addressed to the server are then logged and discarded.
func New(cfgPath string, handler server.Handler) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(toLogxConfig(cfg.Logging))
	mgr.SetLogger(log.With(logx.String("component", "config")))
	mgr.SetOnChange(func(c *config.Config) {
		// Only logging settings take effect without a restart.
		logSvc.Apply(toLogxConfig(c.Logging))
	})

	a := &App{cfgMgr: mgr, logSvc: logSvc, log: log}

	cooldown, err := config.ParseDurationOrDefault("telegram.cooldown", cfg.Telegram.Cooldown, time.Second)
	if err != nil {
		return nil, err
	}
	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}

	if cfg.Journal != nil {
		busy, err := config.ParseDurationField("journal.busy_timeout", cfg.Journal.BusyTimeout)
		if err != nil {
			return nil, err
		}
		a.journal, err = journal.Open(journal.Config{
			Driver:      cfg.Journal.Driver,
			Path:        cfg.Journal.Path,
			BusyTimeout: busy,
		}, log.With(logx.String("component", "journal")))
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
	}

	transport := telegram.NewHTTPTransport(pollTimeout)
	a.sched, err = scheduler.New(scheduler.Config{
		Tokens:      cfg.Telegram.Tokens,
		ChannelID:   cfg.Telegram.ChannelID,
		Cooldown:    cooldown,
		PollTimeout: pollTimeout,
		APIHost:     cfg.Telegram.APIHost,
		RatePerSec:  cfg.Telegram.RatePerSec,
	}, transport, log.With(logx.String("component", "scheduler")))
	if err != nil {
		return nil, err
	}

	if handler == nil {
		handler = a.logPacket
	}
	opt := server.Options{Handler: handler}
	if a.journal != nil {
		opt.Journal = a.journal
	}
	a.srv = server.New(cfg.Telegram.ChannelID, a.sched, opt, log.With(logx.String("component", "server")))

	if cfg.Probe != nil && cfg.Probe.Enabled {
		a.probe, err = probe.New(cfg.Probe.Schedule, a.sched, log.With(logx.String("component", "probe")))
		if err != nil {
			return nil, fmt.Errorf("probe: %w", err)
		}
	}

	return a, nil
}

// Server exposes the tunnel endpoint (for embedding isotun in a larger
// program).
func (a *App) Server() *server.Server { return a.srv }

func (a *App) Start(ctx context.Context) error {
	a.srv.Start(ctx)
	if a.probe != nil {
		a.probe.Start()
	}

	wctx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	a.watchWG.Add(1)
	go func() {
		defer a.watchWG.Done()
		if err := a.cfgMgr.Watch(wctx); err != nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	a.log.Info("isotun started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.watchCancel != nil {
		a.watchCancel()
		a.watchWG.Wait()
	}
	if a.probe != nil {
		_ = a.probe.Stop(ctx)
	}
	err := a.srv.Stop(ctx)
	if a.journal != nil {
		_ = a.journal.Close()
	}
	a.log.Info("isotun stopped", logx.Err(err))
	_ = a.logSvc.Close()
	return err
}

// logPacket is the default handler: record arrival, discard payload.
func (a *App) logPacket(ctx context.Context, pkt *wire.Packet) {
	a.log.Info("packet received",
		logx.String("source", pkt.Source.String()),
		logx.Int("payload_len", len(pkt.Payload)))
}

func toLogxConfig(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File: logx.FileConfig{
			Enabled: c.File.Enabled,
			Path:    c.File.Path,
		},
	}
}
