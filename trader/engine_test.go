// Copyright (c) 2023 BVK Chaitanya

package trader

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/bvk/autotrader/exchange/paper"
	"github.com/bvk/autotrader/gobs"
	"github.com/bvk/autotrader/ledger"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"
	"github.com/visvasity/topic"
)

func newTestEngine(t *testing.T, db kv.Database) (*Engine, *Configs) {
	t.Helper()
	ctx := context.Background()

	saveTestStrategy(t, db)
	configs := NewConfigs(db)
	cfg := testTradeConfig()
	if err := configs.Save(ctx, cfg); err != nil {
		t.Fatal(err)
	}
	if err := configs.Activate(ctx, cfg.Name); err != nil {
		t.Fatal(err)
	}

	ex := paper.New(nil)
	ex.Deposit("EUR", decimal.NewFromInt(1000))
	ex.SetPrice("BTC-EUR", decimal.NewFromInt(100))

	return NewEngine(db, ex, nil, configs), configs
}

func TestEngineStartStop(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	engine, configs := newTestEngine(t, db)
	defer engine.Close()

	receiver, err := topic.Subscribe(engine.Events(), 16, false)
	if err != nil {
		t.Fatal(err)
	}
	defer receiver.Close()
	eventCh, err := topic.ReceiveCh(receiver)
	if err != nil {
		t.Fatal(err)
	}

	if engine.IsRunning() {
		t.Fatalf("engine must not be running before Start")
	}
	if err := engine.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if !engine.IsRunning() {
		t.Fatalf("engine must be running after Start")
	}
	if name := engine.ConfigName(); name != "test" {
		t.Fatalf("want config test, got %q", name)
	}

	select {
	case ev := <-eventCh:
		if ev.Type != gobs.TradingStarted {
			t.Fatalf("want TradingStarted event, got %v", ev.Type)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for the TradingStarted event")
	}

	// A second Start must be rejected while the loop is running.
	if err := engine.Start(ctx); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid on double start, got %v", err)
	}
	// So must a Reset.
	if err := engine.Reset(ctx, true); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid on reset while running, got %v", err)
	}

	// The running marker is durable while the session runs.
	cfg, err := configs.Get(ctx, "test")
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Running {
		t.Fatalf("configuration must be marked running")
	}

	if err := engine.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if engine.IsRunning() {
		t.Fatalf("engine must not be running after Stop")
	}
	cfg, err = configs.Get(ctx, "test")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Running {
		t.Fatalf("configuration must be marked stopped")
	}

	// Stopping twice is a no-op.
	if err := engine.Stop(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestEngineStartWithoutActiveConfig(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	saveTestStrategy(t, db)
	configs := NewConfigs(db)
	engine := NewEngine(db, paper.New(nil), nil, configs)
	defer engine.Close()

	if err := engine.Start(ctx); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want os.ErrNotExist without an active configuration, got %v", err)
	}
}

func TestEngineStartWithoutStrategy(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	configs := NewConfigs(db)
	cfg := testTradeConfig()
	if err := configs.Save(ctx, cfg); err != nil {
		t.Fatal(err)
	}
	if err := configs.Activate(ctx, cfg.Name); err != nil {
		t.Fatal(err)
	}

	engine := NewEngine(db, paper.New(nil), nil, configs)
	defer engine.Close()

	if err := engine.Start(ctx); err == nil {
		t.Fatalf("starting without the configured strategy must fail")
	}
}

func TestEngineResetDiscardsData(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	engine, _ := newTestEngine(t, db)
	defer engine.Close()

	// Seed stale order rows from a "previous session".
	stale := ledger.New("paper")
	order := &gobs.MarketOrder{
		ServerOrderID:  "stale-1",
		ExchangeName:   "paper",
		BaseCurrency:   "EUR",
		TradedCurrency: "BTC",
		Side:           "BUY",
		Size:           decimal.NewFromInt(1),
		Price:          decimal.NewFromInt(100),
		CreateTime:     gobs.RemoteTime{Time: time.Now()},
	}
	if err := stale.AddBuyOrder(ctx, db, order); err != nil {
		t.Fatal(err)
	}
	if found, err := stale.HasData(ctx, db); err != nil || !found {
		t.Fatalf("stale data must be present (found=%t err=%v)", found, err)
	}

	if err := engine.Reset(ctx, true); err != nil {
		t.Fatal(err)
	}

	// The reset request survives a restart.
	engine2 := NewEngine(db, paper.New(nil), nil, NewConfigs(db))
	engine2.mu.Lock()
	requested := engine2.resetRequested
	engine2.mu.Unlock()
	engine2.events.Close()
	if !requested {
		t.Fatalf("reset request must be durable")
	}

	if err := engine.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer engine.Stop(ctx)

	if found, err := stale.HasData(ctx, db); err != nil || found {
		t.Fatalf("stale data must be discarded on start (found=%t err=%v)", found, err)
	}
}
