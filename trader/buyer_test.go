// Copyright (c) 2023 BVK Chaitanya

package trader

import (
	"context"
	"testing"
	"time"

	"github.com/bvk/autotrader/exchange"
	"github.com/bvk/autotrader/gobs"
	"github.com/bvk/autotrader/idgen"
	"github.com/bvk/autotrader/ledger"
	"github.com/bvk/autotrader/strategy"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"
)

func testTradeConfig() *gobs.TradeConfig {
	return &gobs.TradeConfig{
		Name:             "test",
		ExchangeName:     "paper",
		BaseCurrency:     "EUR",
		TradedCurrencies: []string{"BTC"},
		StrategyName:     "rsi",
		TickInterval:     time.Minute,
		CycleTimeout:     time.Minute,
		Buy: gobs.BuySettings{
			MaxCoinAmount:             decimal.NewFromInt(100),
			PercentageBuyAmount:       decimal.NewFromInt(10),
			MinOrderPrice:             decimal.NewFromInt(5),
			MaxOpenTime:               time.Hour,
			MaxOpenOrders:             5,
			MaxOpenPositionsPerMarket: 2,
			AnyIndicator:              true,
		},
		Sell: gobs.SellSettings{
			ProfitPercentage:   decimal.NewFromInt(10),
			StopLossPercentage: decimal.NewFromInt(10),
			MaxOpenTime:        time.Hour,
			AnyIndicator:       true,
		},
	}
}

func saveTestStrategy(t *testing.T, db kv.Database) {
	t.Helper()
	cs := &gobs.CustomStrategy{
		Name: "rsi",
		Leaves: []*gobs.StrategyLeaf{
			{
				Kind:        strategy.KindRSI,
				Period:      4,
				TopLevel:    decimal.NewFromInt(70),
				BottomLevel: decimal.NewFromInt(30),
			},
		},
	}
	if err := strategy.SaveSettings(context.Background(), db, cs); err != nil {
		t.Fatal(err)
	}
}

func newTestBuyer(t *testing.T, db kv.Database, ex *fakeExchange, cfg *gobs.TradeConfig) (*Buyer, *ledger.Ledger, *Runtime) {
	t.Helper()
	l := ledger.New(cfg.ExchangeName)
	holder, err := ex.GetLots(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	eval := strategy.NewEvaluator(db, ex, l)
	gen := idgen.New("buyer-test", 0)
	buyer := NewBuyer(cfg, l, NewLotsAdvisor(holder), eval, gen)
	rt := &Runtime{Database: db, Exchange: ex}
	return buyer, l, rt
}

func TestBuyerOpensOrderOnSignal(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	saveTestStrategy(t, db)

	ex := newFakeExchange()
	ex.candles = fallingCandles(6, time.Now().Add(-time.Hour))
	ex.tickerMap["BTC"] = &exchange.Ticker{Ask: decimal.NewFromInt(5), Bid: decimal.NewFromInt(4)}
	ex.balanceMap["EUR"] = decimal.NewFromInt(1000)

	cfg := testTradeConfig()
	buyer, l, rt := newTestBuyer(t, db, ex, cfg)

	if err := buyer.Run(ctx, rt); err != nil {
		t.Fatal(err)
	}
	if len(ex.buys) != 1 {
		t.Fatalf("want 1 buy order, got %d", len(ex.buys))
	}
	// 10% of the 100 EUR budget at ask price 5 buys 2 units.
	if got := ex.buys[0].Size; !got.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("want buy size 2, got %s", got)
	}
	if got := ex.buys[0].Price; !got.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("want buy price 5, got %s", got)
	}
	if n := l.BuyOrderCount(); n != 1 {
		t.Fatalf("want 1 ledger buy order, got %d", n)
	}

	// The signaling candle was marked; running again on the same history
	// must not open a second order.
	ex.openMap["BTC"] = []*gobs.MarketOrder{ex.buys[0]}
	if err := buyer.Run(ctx, rt); err != nil {
		t.Fatal(err)
	}
	if len(ex.buys) != 1 {
		t.Fatalf("the same candle must not trigger a second buy, got %d orders", len(ex.buys))
	}
}

func TestBuyerNoSignalNoOrder(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	saveTestStrategy(t, db)

	ex := newFakeExchange()
	ex.candles = risingCandles(6, time.Now().Add(-time.Hour))
	ex.tickerMap["BTC"] = &exchange.Ticker{Ask: decimal.NewFromInt(5), Bid: decimal.NewFromInt(4)}
	ex.balanceMap["EUR"] = decimal.NewFromInt(1000)

	cfg := testTradeConfig()
	buyer, _, rt := newTestBuyer(t, db, ex, cfg)

	if err := buyer.Run(ctx, rt); err != nil {
		t.Fatal(err)
	}
	if len(ex.buys) != 0 {
		t.Fatalf("rising closes must not trigger a buy, got %d orders", len(ex.buys))
	}
}

func TestBuyerPositionCap(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	saveTestStrategy(t, db)

	ex := newFakeExchange()
	ex.candles = fallingCandles(6, time.Now().Add(-time.Hour))
	ex.tickerMap["BTC"] = &exchange.Ticker{Ask: decimal.NewFromInt(5), Bid: decimal.NewFromInt(4)}
	ex.balanceMap["EUR"] = decimal.NewFromInt(1000)

	cfg := testTradeConfig()
	cfg.Buy.MaxOpenPositionsPerMarket = 1
	buyer, l, rt := newTestBuyer(t, db, ex, cfg)

	open := &gobs.MarketOrder{
		ServerOrderID:  "open-1",
		ExchangeName:   "paper",
		BaseCurrency:   "EUR",
		TradedCurrency: "BTC",
		Side:           "BUY",
		Size:           decimal.NewFromInt(1),
		Price:          decimal.NewFromInt(5),
		CreateTime:     gobs.RemoteTime{Time: time.Now()},
	}
	if err := l.AddBuyOrder(ctx, db, open); err != nil {
		t.Fatal(err)
	}
	ex.openMap["BTC"] = []*gobs.MarketOrder{open}

	if err := buyer.Run(ctx, rt); err != nil {
		t.Fatal(err)
	}
	if len(ex.buys) != 0 {
		t.Fatalf("position cap must block the buy, got %d orders", len(ex.buys))
	}
}

func TestBuyerDetectsFill(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	saveTestStrategy(t, db)

	ex := newFakeExchange()
	ex.candles = risingCandles(6, time.Now().Add(-time.Hour))
	ex.tickerMap["BTC"] = &exchange.Ticker{Ask: decimal.NewFromInt(5), Bid: decimal.NewFromInt(4)}

	cfg := testTradeConfig()
	buyer, l, rt := newTestBuyer(t, db, ex, cfg)

	filled := &gobs.MarketOrder{
		ServerOrderID:  "buy-1",
		ExchangeName:   "paper",
		BaseCurrency:   "EUR",
		TradedCurrency: "BTC",
		Side:           "BUY",
		Size:           decimal.NewFromInt(2),
		Price:          decimal.NewFromInt(5),
		CreateTime:     gobs.RemoteTime{Time: time.Now()},
	}
	if err := l.AddBuyOrder(ctx, db, filled); err != nil {
		t.Fatal(err)
	}
	// The exchange no longer reports the order as open and its detail
	// view is not canceled, so it was filled.
	ex.orderMap["buy-1"] = filled

	if err := buyer.Run(ctx, rt); err != nil {
		t.Fatal(err)
	}
	if n := l.BuyOrderCount(); n != 0 {
		t.Fatalf("filled order must leave the open-buy view, got %d", n)
	}
	basket, ok := l.ProfitBasket("BTC")
	if !ok || !basket.Contains("buy-1") {
		t.Fatalf("filled order must land in the profit basket")
	}
}

func TestBuyerDetectsManualCancel(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	saveTestStrategy(t, db)

	ex := newFakeExchange()
	ex.candles = risingCandles(6, time.Now().Add(-time.Hour))

	cfg := testTradeConfig()
	buyer, l, rt := newTestBuyer(t, db, ex, cfg)

	canceled := &gobs.MarketOrder{
		ServerOrderID:  "buy-1",
		ExchangeName:   "paper",
		BaseCurrency:   "EUR",
		TradedCurrency: "BTC",
		Side:           "BUY",
		Size:           decimal.NewFromInt(2),
		Price:          decimal.NewFromInt(5),
		CreateTime:     gobs.RemoteTime{Time: time.Now()},
	}
	if err := l.AddBuyOrder(ctx, db, canceled); err != nil {
		t.Fatal(err)
	}
	detail := *canceled
	detail.Canceled = true
	ex.orderMap["buy-1"] = &detail

	if err := buyer.Run(ctx, rt); err != nil {
		t.Fatal(err)
	}
	if n := l.BuyOrderCount(); n != 0 {
		t.Fatalf("canceled order must leave the open-buy view, got %d", n)
	}
	if _, ok := l.ProfitBasket("BTC"); ok {
		t.Fatalf("canceled order must not land in the profit basket")
	}
}

func TestBuyerAdoptsManualOrder(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	saveTestStrategy(t, db)

	ex := newFakeExchange()
	ex.candles = risingCandles(6, time.Now().Add(-time.Hour))

	manual := &gobs.MarketOrder{
		ServerOrderID:  "manual-1",
		BaseCurrency:   "EUR",
		TradedCurrency: "BTC",
		Side:           "BUY",
		Size:           decimal.NewFromInt(1),
		Price:          decimal.NewFromInt(5),
	}
	ex.openMap["BTC"] = []*gobs.MarketOrder{manual}

	cfg := testTradeConfig()
	buyer, l, rt := newTestBuyer(t, db, ex, cfg)

	if err := buyer.Run(ctx, rt); err != nil {
		t.Fatal(err)
	}
	if !l.ContainsBuyOrder("manual-1") {
		t.Fatalf("manually opened buy order must be adopted")
	}
	orders := l.BuyOrders()
	if len(orders) != 1 || orders[0].CreateTime.Time.IsZero() {
		t.Fatalf("adopted order must get a local open timestamp")
	}
}

func TestBuyerCancelsOutdated(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	saveTestStrategy(t, db)

	ex := newFakeExchange()
	ex.candles = risingCandles(6, time.Now().Add(-time.Hour))

	cfg := testTradeConfig()
	cfg.Buy.MaxOpenTime = time.Hour
	buyer, l, rt := newTestBuyer(t, db, ex, cfg)

	stale := &gobs.MarketOrder{
		ServerOrderID:  "buy-1",
		ExchangeName:   "paper",
		BaseCurrency:   "EUR",
		TradedCurrency: "BTC",
		Side:           "BUY",
		Size:           decimal.NewFromInt(2),
		Price:          decimal.NewFromInt(5),
		CreateTime:     gobs.RemoteTime{Time: time.Now().Add(-2 * time.Hour)},
	}
	if err := l.AddBuyOrder(ctx, db, stale); err != nil {
		t.Fatal(err)
	}
	ex.openMap["BTC"] = []*gobs.MarketOrder{stale}

	if err := buyer.Run(ctx, rt); err != nil {
		t.Fatal(err)
	}
	if len(ex.canceled) != 1 || ex.canceled[0] != "buy-1" {
		t.Fatalf("outdated order must be canceled on the exchange, got %v", ex.canceled)
	}
	if n := l.BuyOrderCount(); n != 0 {
		t.Fatalf("outdated order must leave the open-buy view, got %d", n)
	}
}
