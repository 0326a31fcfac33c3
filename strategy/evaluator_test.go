// Copyright (c) 2023 BVK Chaitanya

package strategy

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/bvk/autotrader/exchange"
	"github.com/bvk/autotrader/gobs"
	"github.com/bvk/autotrader/ledger"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"
)

// candleExchange serves a fixed candle history and fails everything else.
type candleExchange struct {
	candles []*gobs.Candle
	err     error
}

func (e *candleExchange) ExchangeName() string { return "paper" }

func (e *candleExchange) GetOpenOrders(ctx context.Context, base, traded string) ([]*gobs.MarketOrder, error) {
	return nil, os.ErrInvalid
}

func (e *candleExchange) GetOrder(ctx context.Context, base, traded, serverID string) (*gobs.MarketOrder, error) {
	return nil, os.ErrInvalid
}

func (e *candleExchange) GetTicker(ctx context.Context, base, traded string) (*exchange.Ticker, error) {
	return nil, os.ErrInvalid
}

func (e *candleExchange) GetBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	return decimal.Zero, os.ErrInvalid
}

func (e *candleExchange) Buy(ctx context.Context, clientID, base, traded string, size, price decimal.Decimal) (*gobs.MarketOrder, error) {
	return nil, os.ErrInvalid
}

func (e *candleExchange) Sell(ctx context.Context, clientID, base, traded string, size, price decimal.Decimal) (*gobs.MarketOrder, error) {
	return nil, os.ErrInvalid
}

func (e *candleExchange) Cancel(ctx context.Context, base, traded, serverID string) error {
	return os.ErrInvalid
}

func (e *candleExchange) GetLots(ctx context.Context) (*exchange.LotsHolder, error) {
	return exchange.NewLotsHolder(nil), nil
}

func (e *candleExchange) GetCandles(ctx context.Context, base, traded string, interval time.Duration) ([]*gobs.Candle, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.candles, nil
}

func fallingCandles(n int, t0 time.Time) []*gobs.Candle {
	var candles []*gobs.Candle
	for i := 0; i < n; i++ {
		close := decimal.NewFromInt(int64(100 - i))
		candles = append(candles, &gobs.Candle{
			StartTime: gobs.RemoteTime{Time: t0.Add(time.Duration(i) * time.Minute)},
			Duration:  time.Minute,
			Low:       close.Sub(decimal.NewFromInt(1)),
			High:      close.Add(decimal.NewFromInt(1)),
			Open:      close,
			Close:     close,
		})
	}
	return candles
}

func evaluatorConfig() *gobs.TradeConfig {
	return &gobs.TradeConfig{
		Name:             "test",
		ExchangeName:     "paper",
		BaseCurrency:     "EUR",
		TradedCurrencies: []string{"BTC"},
		StrategyName:     "rsi-only",
		TickInterval:     time.Minute,
		CycleTimeout:     time.Minute,
		Buy:              gobs.BuySettings{AnyIndicator: true},
		Sell:             gobs.SellSettings{AnyIndicator: true},
	}
}

func TestEvaluatorSignalAndMarkGuard(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	cs := &gobs.CustomStrategy{
		Name: "rsi-only",
		Leaves: []*gobs.StrategyLeaf{
			{
				Kind:        KindRSI,
				Period:      4,
				TopLevel:    decimal.NewFromInt(70),
				BottomLevel: decimal.NewFromInt(30),
			},
		},
	}
	if err := SaveSettings(ctx, db, cs); err != nil {
		t.Fatal(err)
	}

	ex := &candleExchange{candles: fallingCandles(6, time.Now())}
	l := ledger.New("paper")
	ev := NewEvaluator(db, ex, l)
	cfg := evaluatorConfig()

	sig, err := ev.Evaluate(ctx, cfg, "BTC", Buy)
	if err != nil {
		t.Fatal(err)
	}
	if !sig.Triggered {
		t.Fatalf("falling closes must trigger a buy signal")
	}
	if len(sig.Marks) != 1 || sig.Marks[0].StrategyKind != KindRSI {
		t.Fatalf("want one RSI candle mark, got %v", sig.Marks)
	}

	// Committing the signal marks the last candle; the same candle must
	// not trigger a second fresh signal.
	if err := ev.Commit(ctx, sig); err != nil {
		t.Fatal(err)
	}
	sig, err = ev.Evaluate(ctx, cfg, "BTC", Buy)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Triggered {
		t.Fatalf("an already marked candle must not trigger again")
	}

	// A new candle lifts the guard.
	last := ex.candles[len(ex.candles)-1]
	ex.candles = append(ex.candles, &gobs.Candle{
		StartTime: gobs.RemoteTime{Time: last.StartTime.Add(time.Minute)},
		Duration:  time.Minute,
		Low:       last.Close.Sub(decimal.NewFromInt(2)),
		High:      last.Close,
		Open:      last.Close,
		Close:     last.Close.Sub(decimal.NewFromInt(1)),
	})
	sig, err = ev.Evaluate(ctx, cfg, "BTC", Buy)
	if err != nil {
		t.Fatal(err)
	}
	if !sig.Triggered {
		t.Fatalf("a fresh candle must trigger a new signal")
	}
}

func TestEvaluatorCandleCacheFallback(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	cs := &gobs.CustomStrategy{
		Name: "rsi-only",
		Leaves: []*gobs.StrategyLeaf{
			{
				Kind:        KindRSI,
				Period:      4,
				TopLevel:    decimal.NewFromInt(70),
				BottomLevel: decimal.NewFromInt(30),
			},
		},
	}
	if err := SaveSettings(ctx, db, cs); err != nil {
		t.Fatal(err)
	}

	ex := &candleExchange{candles: fallingCandles(6, time.Now())}
	l := ledger.New("paper")
	ev := NewEvaluator(db, ex, l)
	cfg := evaluatorConfig()

	// A successful evaluation refreshes the local candle cache.
	if _, err := ev.Evaluate(ctx, cfg, "BTC", Buy); err != nil {
		t.Fatal(err)
	}

	// When the exchange fails, evaluation falls back to the cache and
	// still produces the same signal.
	ex.err = os.ErrDeadlineExceeded
	sig, err := ev.Evaluate(ctx, cfg, "BTC", Buy)
	if err != nil {
		t.Fatal(err)
	}
	if !sig.Triggered {
		t.Fatalf("cached candles must still trigger the buy signal")
	}
}

func TestStrategyCheck(t *testing.T) {
	cs := &gobs.CustomStrategy{Name: "empty"}
	if err := Check(cs); err == nil {
		t.Fatalf("a strategy without leaves must be rejected")
	}

	cs = &gobs.CustomStrategy{
		Name:   "nested",
		Leaves: []*gobs.StrategyLeaf{{Kind: KindSMA, Period: 10}},
		Children: []*gobs.CustomStrategy{
			{
				Name:   "child",
				Leaves: []*gobs.StrategyLeaf{{Kind: KindMACrossing, FastPeriod: 0, SlowPeriod: 10}},
			},
		},
	}
	if err := Check(cs); err == nil {
		t.Fatalf("an invalid nested leaf must be rejected")
	}

	cs.Children[0].Leaves[0].FastPeriod = 5
	if err := Check(cs); err != nil {
		t.Fatal(err)
	}
}
