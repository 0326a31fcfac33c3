// Copyright (c) 2023 BVK Chaitanya

package strategy

import (
	"context"
	"log/slog"

	"github.com/bvk/autotrader/exchange"
	"github.com/bvk/autotrader/gobs"
	"github.com/bvk/autotrader/kvutil"
	"github.com/bvk/autotrader/ledger"
	"github.com/bvkgo/kv"
)

// Evaluator walks a configuration's strategy tree and reduces per-leaf
// signals into one buy/sell decision.
type Evaluator struct {
	db kv.Database

	ex exchange.Exchange

	ledger *ledger.Ledger
}

// Signal is the outcome of one evaluation. Marks holds the signaling
// candle for every contributing leaf kind and Settings carries the tree
// with any updated crossing state; both are persisted with Commit only
// when the caller acts on the signal.
type Signal struct {
	Triggered bool

	Marks []*gobs.CandleMark

	Settings *gobs.CustomStrategy
}

func NewEvaluator(db kv.Database, ex exchange.Exchange, l *ledger.Ledger) *Evaluator {
	return &Evaluator{db: db, ex: ex, ledger: l}
}

// Evaluate computes the overall signal for one traded currency. With the
// "any" policy the decision starts false and is set by the first
// contributing leaf; with the "all" policy it starts true and is cleared
// by the first non-contributing leaf.
func (e *Evaluator) Evaluate(ctx context.Context, cfg *gobs.TradeConfig, traded string, mode Mode) (*Signal, error) {
	cs, err := LoadSettings(ctx, e.db, cfg.StrategyName)
	if err != nil {
		return nil, err
	}

	candles, err := e.history(ctx, cfg, traded)
	if err != nil {
		return nil, err
	}

	any := cfg.Buy.AnyIndicator
	if mode == Sell {
		any = cfg.Sell.AnyIndicator
	}

	sig := &Signal{Settings: cs}
	sig.Triggered = e.evaluateNode(cs, candles, traded, mode, any, sig)
	return sig, nil
}

func (e *Evaluator) evaluateNode(cs *gobs.CustomStrategy, candles []*gobs.Candle, traded string, mode Mode, any bool, sig *Signal) bool {
	result := !any
	combine := func(ok bool) {
		if any {
			result = result || ok
		} else {
			result = result && ok
		}
	}

	for _, leaf := range cs.Leaves {
		combine(e.evaluateLeaf(leaf, candles, traded, mode, sig))
	}
	for _, child := range cs.Children {
		combine(e.evaluateNode(child, candles, traded, mode, any, sig))
	}
	return result
}

func (e *Evaluator) evaluateLeaf(leaf *gobs.StrategyLeaf, candles []*gobs.Candle, traded string, mode Mode, sig *Signal) bool {
	if len(candles) == 0 {
		return false
	}
	last := candles[len(candles)-1]

	// A candle this leaf kind has already signaled on must never trigger
	// a second fresh decision.
	if mark, ok := e.ledger.CandleMark(traded, leaf.Kind); ok {
		if mark.Candle != nil && candleEqual(mark.Candle, last) {
			return false
		}
	}

	if !EvaluateLeaf(leaf, candles, mode) {
		return false
	}
	sig.Marks = append(sig.Marks, &gobs.CandleMark{
		TradedCurrency: traded,
		StrategyKind:   leaf.Kind,
		Candle:         last,
	})
	return true
}

// Commit records the signaling candles and writes the updated strategy
// settings back to the store. Called only after an order was actually
// placed on the signal.
func (e *Evaluator) Commit(ctx context.Context, sig *Signal) error {
	for _, mark := range sig.Marks {
		if err := e.ledger.SetCandleMark(ctx, e.db, mark); err != nil {
			return err
		}
	}
	return SaveSettings(ctx, e.db, sig.Settings)
}

// history fetches market candles from the exchange, refreshing the local
// candle cache on success and falling back to it on failure.
func (e *Evaluator) history(ctx context.Context, cfg *gobs.TradeConfig, traded string) ([]*gobs.Candle, error) {
	key := ledger.CandlesKey(cfg.ExchangeName, cfg.BaseCurrency, traded, cfg.TickInterval.String())

	candles, err := e.ex.GetCandles(ctx, cfg.BaseCurrency, traded, cfg.TickInterval)
	if err == nil {
		if serr := kvutil.SetDB(ctx, e.db, key, &gobs.Candles{Candles: candles}); serr != nil {
			slog.Warn("could not cache market candles (ignored)", "key", key, "err", serr)
		}
		return candles, nil
	}

	cached, cerr := kvutil.GetDB[gobs.Candles](ctx, e.db, key)
	if cerr != nil {
		return nil, err
	}
	slog.Warn("using cached market candles", "key", key, "err", err)
	return cached.Candles, nil
}

func candleEqual(a, b *gobs.Candle) bool {
	return a.StartTime.Time.Equal(b.StartTime.Time) &&
		a.Duration == b.Duration &&
		a.Open.Equal(b.Open) &&
		a.Close.Equal(b.Close) &&
		a.High.Equal(b.High) &&
		a.Low.Equal(b.Low)
}
