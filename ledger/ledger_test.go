// Copyright (c) 2023 BVK Chaitanya

package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/bvk/autotrader/gobs"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"
)

var testConfig = &gobs.TradeConfig{
	Name:             "test",
	ExchangeName:     "paper",
	BaseCurrency:     "EUR",
	TradedCurrencies: []string{"BTC", "ETH"},
}

func testOrder(id, traded, side, size, price string, at time.Time) *gobs.MarketOrder {
	return &gobs.MarketOrder{
		ServerOrderID:  id,
		ExchangeName:   "paper",
		BaseCurrency:   "EUR",
		TradedCurrency: traded,
		Side:           side,
		Size:           decimal.RequireFromString(size),
		Price:          decimal.RequireFromString(price),
		CreateTime:     gobs.RemoteTime{Time: at},
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	l := New("paper")
	t0 := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

	b1 := testOrder("buy-1", "BTC", "BUY", "0.5", "100", t0)
	b2 := testOrder("buy-2", "BTC", "BUY", "0.25", "99", t0.Add(time.Minute))
	b3 := testOrder("buy-3", "ETH", "BUY", "2", "50", t0.Add(2*time.Minute))
	for _, order := range []*gobs.MarketOrder{b1, b2, b3} {
		if err := l.AddBuyOrder(ctx, db, order); err != nil {
			t.Fatal(err)
		}
	}

	s1 := testOrder("sell-1", "BTC", "SELL", "0.5", "110", t0.Add(3*time.Minute))
	if err := l.AddSellOrder(ctx, db, s1); err != nil {
		t.Fatal(err)
	}
	if err := l.AddMatching(ctx, db, &gobs.OrderMatching{SellServerID: s1.ServerOrderID, BuyOrder: b1}); err != nil {
		t.Fatal(err)
	}
	if err := l.MoveBuyToProfit(ctx, db, b2); err != nil {
		t.Fatal(err)
	}
	mark := &gobs.CandleMark{
		TradedCurrency: "BTC",
		StrategyKind:   "RSI",
		Candle:         &gobs.Candle{StartTime: gobs.RemoteTime{Time: t0}},
	}
	if err := l.SetCandleMark(ctx, db, mark); err != nil {
		t.Fatal(err)
	}

	// A second instance must rebuild the same view from the store.
	l2 := New("paper")
	if err := l2.Load(ctx, db, testConfig); err != nil {
		t.Fatal(err)
	}
	if n := l2.BuyOrderCount(); n != 1 {
		t.Fatalf("want 1 open buy order, got %d", n)
	}
	if !l2.ContainsBuyOrder("buy-3") {
		t.Fatalf("buy-3 must survive the reload")
	}
	if l2.ContainsBuyOrder("buy-1") {
		t.Fatalf("buy-1 was matched to sell-1 and must not be an open buy")
	}
	if l2.ContainsBuyOrder("buy-2") {
		t.Fatalf("buy-2 was moved to the profit basket and must not be an open buy")
	}
	if n := l2.SellOrderCount(); n != 1 {
		t.Fatalf("want 1 open sell order, got %d", n)
	}
	basket, ok := l2.ProfitBasket("BTC")
	if !ok {
		t.Fatalf("BTC profit basket must exist after reload")
	}
	if !basket.Contains("buy-2") {
		t.Fatalf("BTC basket must contain buy-2")
	}
	if got := basket.Balance(); !got.Equal(decimal.RequireFromString("0.25")) {
		t.Fatalf("want basket balance 0.25, got %s", got)
	}
	if _, ok := l2.Matching("sell-1"); !ok {
		t.Fatalf("matching for sell-1 must survive the reload")
	}
	if m, ok := l2.CandleMark("BTC", "RSI"); !ok || !m.Candle.StartTime.Equal(t0) {
		t.Fatalf("candle mark for BTC/RSI must survive the reload")
	}

	// Loading twice must be idempotent.
	if err := l2.Load(ctx, db, testConfig); err != nil {
		t.Fatal(err)
	}
	if n := l2.BuyOrderCount(); n != 1 {
		t.Fatalf("want 1 open buy order after reloading, got %d", n)
	}
}

func TestLedgerMatchedBuyLeavesOpenView(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	l := New("paper")
	t0 := time.Now()

	b1 := testOrder("buy-1", "BTC", "BUY", "1", "100", t0)
	if err := l.AddBuyOrder(ctx, db, b1); err != nil {
		t.Fatal(err)
	}
	s1 := testOrder("sell-1", "BTC", "SELL", "1", "110", t0.Add(time.Minute))
	if err := l.AddSellOrder(ctx, db, s1); err != nil {
		t.Fatal(err)
	}
	if err := l.AddMatching(ctx, db, &gobs.OrderMatching{SellServerID: s1.ServerOrderID, BuyOrder: b1}); err != nil {
		t.Fatal(err)
	}

	// The buy row is still durable, but a reload must not resurrect it as
	// an open buy because its sell is in flight.
	l2 := New("paper")
	if err := l2.Load(ctx, db, testConfig); err != nil {
		t.Fatal(err)
	}
	if l2.ContainsBuyOrder("buy-1") {
		t.Fatalf("buy-1 is matched to sell-1 and must not be an open buy")
	}
	if !l2.ContainsSellOrder("sell-1") {
		t.Fatalf("sell-1 must be an open sell")
	}
}

func TestLedgerSkipsOtherCurrencies(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	l := New("paper")
	if err := l.AddBuyOrder(ctx, db, testOrder("buy-1", "DOGE", "BUY", "100", "0.1", time.Now())); err != nil {
		t.Fatal(err)
	}

	l2 := New("paper")
	if err := l2.Load(ctx, db, testConfig); err != nil {
		t.Fatal(err)
	}
	if n := l2.BuyOrderCount(); n != 0 {
		t.Fatalf("DOGE is not a configured currency; want 0 open buy orders, got %d", n)
	}
}

func TestLedgerOrdersSorted(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	l := New("paper")
	t0 := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := l.AddBuyOrder(ctx, db, testOrder("buy-b", "BTC", "BUY", "1", "100", t0.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	if err := l.AddBuyOrder(ctx, db, testOrder("buy-a", "BTC", "BUY", "1", "100", t0)); err != nil {
		t.Fatal(err)
	}
	if err := l.AddBuyOrder(ctx, db, testOrder("buy-c", "BTC", "BUY", "1", "100", t0)); err != nil {
		t.Fatal(err)
	}

	orders := l.BuyOrders()
	if len(orders) != 3 {
		t.Fatalf("want 3 orders, got %d", len(orders))
	}
	want := []string{"buy-a", "buy-c", "buy-b"}
	for i, id := range want {
		if orders[i].ServerOrderID != id {
			t.Fatalf("order %d: want %s, got %s", i, id, orders[i].ServerOrderID)
		}
	}
}

func TestLedgerHasDataDeleteAll(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	l := New("paper")
	if found, err := l.HasData(ctx, db); err != nil || found {
		t.Fatalf("empty store must have no data (found=%t err=%v)", found, err)
	}

	if err := l.AddBuyOrder(ctx, db, testOrder("buy-1", "BTC", "BUY", "1", "100", time.Now())); err != nil {
		t.Fatal(err)
	}
	if found, err := l.HasData(ctx, db); err != nil || !found {
		t.Fatalf("store with a buy order must have data (found=%t err=%v)", found, err)
	}

	if err := l.DeleteAll(ctx, db, testConfig); err != nil {
		t.Fatal(err)
	}
	if found, err := l.HasData(ctx, db); err != nil || found {
		t.Fatalf("store must be empty after DeleteAll (found=%t err=%v)", found, err)
	}
	if n := l.BuyOrderCount(); n != 0 {
		t.Fatalf("in-memory view must be empty after DeleteAll, got %d buys", n)
	}
}

func TestProfitBasketLifecycle(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	l := New("paper")
	t0 := time.Now()
	b1 := testOrder("buy-1", "ETH", "BUY", "2", "50", t0)
	b2 := testOrder("buy-2", "ETH", "BUY", "3", "48", t0.Add(time.Minute))
	for _, order := range []*gobs.MarketOrder{b1, b2} {
		if err := l.AddBuyOrder(ctx, db, order); err != nil {
			t.Fatal(err)
		}
		if err := l.MoveBuyToProfit(ctx, db, order); err != nil {
			t.Fatal(err)
		}
	}

	basket, ok := l.ProfitBasket("ETH")
	if !ok {
		t.Fatalf("ETH basket must exist")
	}
	if got := basket.Balance(); !got.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("want basket balance 5, got %s", got)
	}

	if err := l.RemoveProfitOrder(ctx, db, "ETH", "buy-1"); err != nil {
		t.Fatal(err)
	}
	if got := basket.Balance(); !got.Equal(decimal.RequireFromString("3")) {
		t.Fatalf("want basket balance 3, got %s", got)
	}

	if err := l.RemoveProfitOrder(ctx, db, "ETH", "buy-2"); err != nil {
		t.Fatal(err)
	}
	if _, ok := l.ProfitBasket("ETH"); ok {
		t.Fatalf("empty basket must be dropped")
	}
}
