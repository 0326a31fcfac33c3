// Copyright (c) 2023 BVK Chaitanya

package trader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bvk/autotrader/ctxutil"
	"github.com/bvk/autotrader/exchange"
	"github.com/bvk/autotrader/gobs"
	"github.com/bvk/autotrader/idgen"
	"github.com/bvk/autotrader/job"
	"github.com/bvk/autotrader/kvutil"
	"github.com/bvk/autotrader/ledger"
	"github.com/bvk/autotrader/strategy"
	"github.com/bvkgo/kv"
	"github.com/visvasity/topic"
)

const EngineStateKey = "/engine/state"

// Engine owns the trading session state machine. One dedicated job runs
// the cycle loop; Start, Stop and Reset may be called concurrently from
// control paths.
type Engine struct {
	db kv.Database

	ex exchange.Exchange

	messenger Messenger

	configs *Configs

	events *topic.Topic[*gobs.EngineEvent]

	mu sync.Mutex

	loopJob *job.Job

	cfg *gobs.TradeConfig

	resetRequested bool
}

func NewEngine(db kv.Database, ex exchange.Exchange, messenger Messenger, configs *Configs) *Engine {
	e := &Engine{
		db:        db,
		ex:        ex,
		messenger: messenger,
		configs:   configs,
		events:    topic.New[*gobs.EngineEvent](),
	}
	if state, err := kvutil.GetDB[gobs.EngineState](context.Background(), db, EngineStateKey); err == nil {
		e.resetRequested = state.ResetRequested
	}
	return e
}

// Events returns the engine event topic for subscribers.
func (e *Engine) Events() *topic.Topic[*gobs.EngineEvent] {
	return e.events
}

func (e *Engine) Close() {
	e.Stop(context.Background())
	e.events.Close()
}

func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loopJob != nil && !job.IsFinal(e.loopJob.State())
}

// ConfigName returns the running session's configuration name, if any.
func (e *Engine) ConfigName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cfg == nil {
		return ""
	}
	return e.cfg.Name
}

// Reset records whether the next Start should discard all durable rows
// for the active configuration before reloading.
func (e *Engine) Reset(ctx context.Context, discard bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loopJob != nil && !job.IsFinal(e.loopJob.State()) {
		return fmt.Errorf("cannot reset while trading is running: %w", os.ErrInvalid)
	}
	e.resetRequested = discard
	state := &gobs.EngineState{ResetRequested: discard}
	if e.cfg != nil {
		state.ActiveConfig = e.cfg.Name
	}
	return kvutil.SetDB(ctx, e.db, EngineStateKey, state)
}

// Start snapshots the active configuration and launches the trading
// loop. The configuration cannot be edited until the session stops.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loopJob != nil && !job.IsFinal(e.loopJob.State()) {
		return fmt.Errorf("trading is already running: %w", os.ErrInvalid)
	}

	active, err := e.configs.Active(ctx)
	if err != nil {
		return err
	}

	// An unknown or invalid strategy is a configuration error; the loop
	// must not start with it.
	settings, err := strategy.LoadSettings(ctx, e.db, active.StrategyName)
	if err != nil {
		return err
	}
	if err := strategy.Check(settings); err != nil {
		return err
	}

	cfg, err := gobs.Clone(active)
	if err != nil {
		return err
	}

	l := ledger.New(cfg.ExchangeName)
	rt := &Runtime{
		Database:  e.db,
		Exchange:  e.ex,
		Messenger: e.messenger,
		Events:    e.events,
	}

	if stale, err := l.HasData(ctx, e.db); err != nil {
		return err
	} else if stale && !e.resetRequested {
		rt.Publish(&gobs.EngineEvent{Type: gobs.StaleDataFound, ConfigName: cfg.Name, At: time.Now()})
		rt.Notify(ctx, "default", "local order data from a previous session exists; resuming from it")
	}
	if e.resetRequested {
		if err := l.DeleteAll(ctx, e.db, cfg); err != nil {
			return fmt.Errorf("could not reset local data: %w", err)
		}
		e.resetRequested = false
		if err := kvutil.SetDB(ctx, e.db, EngineStateKey, &gobs.EngineState{ActiveConfig: cfg.Name}); err != nil {
			return err
		}
		rt.Notify(ctx, "default", "local order data was reset")
	}

	// Lot constraints are snapshotted once per session.
	holder, err := e.ex.GetLots(ctx)
	if err != nil {
		return fmt.Errorf("could not fetch lot sizes: %w", err)
	}

	if err := l.Load(ctx, e.db, cfg); err != nil {
		return err
	}

	gen := idgen.New(cfg.Name+"/"+time.Now().Format(time.RFC3339Nano), 0)
	lots := NewLotsAdvisor(holder)
	eval := strategy.NewEvaluator(e.db, e.ex, l)
	buyer := NewBuyer(cfg, l, lots, eval, gen)
	seller := NewSeller(cfg, l, lots, eval, gen)

	if err := e.configs.SetRunning(ctx, cfg.Name, true); err != nil {
		return err
	}
	e.cfg = cfg

	rt.Notify(ctx, "default", "TRADING STARTED (%s)", cfg.Name)
	rt.Publish(&gobs.EngineEvent{Type: gobs.TradingStarted, ConfigName: cfg.Name, At: time.Now()})

	e.loopJob = job.New("", e.loopFunc(rt, buyer, seller, cfg))
	return e.loopJob.Resume(context.Background())
}

// Stop halts the trading loop. A loop sleeping between cycles wakes
// immediately; a loop inside a phase stops at the next phase boundary.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	loopJob := e.loopJob
	e.mu.Unlock()

	if loopJob == nil || job.IsFinal(loopJob.State()) {
		return nil
	}
	return loopJob.Cancel()
}

func (e *Engine) loopFunc(rt *Runtime, buyer *Buyer, seller *Seller, cfg *gobs.TradeConfig) job.Func {
	return func(ctx context.Context) error {
		defer e.finishSession(cfg)

		for ctx.Err() == nil {
			// Phase failures are surfaced and the loop proceeds; only
			// cancellation stops the cycle, and only between phases.
			if err := buyer.Run(ctx, rt); err != nil && ctx.Err() == nil {
				rt.Notify(ctx, "buying", "cycle failed: %v", err)
			}
			if ctx.Err() != nil {
				break
			}
			if err := seller.Run(ctx, rt); err != nil && ctx.Err() == nil {
				rt.Notify(ctx, "selling", "cycle failed: %v", err)
			}
			if ctx.Err() != nil {
				break
			}
			if err := seller.RunStopLoss(ctx, rt); err != nil && ctx.Err() == nil {
				rt.Notify(ctx, "selling", "stop-loss cycle failed: %v", err)
			}

			rt.Publish(&gobs.EngineEvent{Type: gobs.CycleComplete, ConfigName: cfg.Name, At: time.Now()})
			ctxutil.Sleep(ctx, cfg.CycleTimeout)
		}
		return context.Cause(ctx)
	}
}

func (e *Engine) finishSession(cfg *gobs.TradeConfig) {
	ctx := context.Background()
	if err := e.configs.SetRunning(ctx, cfg.Name, false); err != nil {
		slog.Error("could not mark configuration stopped", "config", cfg.Name, "err", err)
	}

	rt := &Runtime{Messenger: e.messenger, Events: e.events}
	rt.Notify(ctx, "default", "TRADING STOPPED (%s)", cfg.Name)
	rt.Publish(&gobs.EngineEvent{Type: gobs.TradingStopped, ConfigName: cfg.Name, At: time.Now()})

	e.mu.Lock()
	e.cfg = nil
	e.mu.Unlock()
}
