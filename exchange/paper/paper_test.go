// Copyright (c) 2025 BVK Chaitanya

package paper

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/shopspring/decimal"
)

func TestPaperBuyLifecycle(t *testing.T) {
	ctx := context.Background()
	x := New(nil)
	x.Deposit("EUR", decimal.NewFromInt(1000))
	x.SetPrice("BTC-EUR", decimal.NewFromInt(100))

	// A buy at a price far above the market fills on the next step.
	order, err := x.Buy(ctx, "client-1", "EUR", "BTC", decimal.NewFromInt(2), decimal.NewFromInt(400))
	if err != nil {
		t.Fatal(err)
	}
	if order.ClientOrderID != "client-1" || order.Side != "BUY" {
		t.Fatalf("unexpected order %+v", order)
	}

	// Placement reserves the notional from the base balance.
	balance, err := x.GetBalance(ctx, "EUR")
	if err != nil {
		t.Fatal(err)
	}
	if !balance.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("buy must reserve the 800 notional, got balance %s", balance)
	}

	// A ticker request advances the simulation; the crossed limit fills
	// and the traded balance is credited.
	if _, err := x.GetTicker(ctx, "EUR", "BTC"); err != nil {
		t.Fatal(err)
	}
	open, err := x.GetOpenOrders(ctx, "EUR", "BTC")
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 0 {
		t.Fatalf("crossed buy must be filled, got %d open orders", len(open))
	}
	balance, err = x.GetBalance(ctx, "BTC")
	if err != nil {
		t.Fatal(err)
	}
	if !balance.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("filled buy must credit the traded balance, got %s", balance)
	}

	detail, err := x.GetOrder(ctx, "EUR", "BTC", order.ServerOrderID)
	if err != nil {
		t.Fatal(err)
	}
	if detail.Canceled {
		t.Fatalf("filled order must not be reported as canceled")
	}
}

func TestPaperCancelRefundsReservation(t *testing.T) {
	ctx := context.Background()
	x := New(nil)
	x.Deposit("EUR", decimal.NewFromInt(1000))
	x.SetPrice("BTC-EUR", decimal.NewFromInt(100))

	// A buy far below the market stays open.
	order, err := x.Buy(ctx, "client-1", "EUR", "BTC", decimal.NewFromInt(2), decimal.NewFromInt(1))
	if err != nil {
		t.Fatal(err)
	}
	if err := x.Cancel(ctx, "EUR", "BTC", order.ServerOrderID); err != nil {
		t.Fatal(err)
	}

	balance, err := x.GetBalance(ctx, "EUR")
	if err != nil {
		t.Fatal(err)
	}
	if !balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("cancel must refund the reservation, got %s", balance)
	}

	detail, err := x.GetOrder(ctx, "EUR", "BTC", order.ServerOrderID)
	if err != nil {
		t.Fatal(err)
	}
	if !detail.Canceled {
		t.Fatalf("canceled order must be reported as canceled")
	}

	// Canceling twice is invalid.
	if err := x.Cancel(ctx, "EUR", "BTC", order.ServerOrderID); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid on double cancel, got %v", err)
	}
}

func TestPaperInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	x := New(nil)
	x.Deposit("EUR", decimal.NewFromInt(10))
	x.SetPrice("BTC-EUR", decimal.NewFromInt(100))

	if _, err := x.Buy(ctx, "client-1", "EUR", "BTC", decimal.NewFromInt(1), decimal.NewFromInt(100)); err == nil {
		t.Fatalf("a buy above the balance must be rejected")
	}
	if _, err := x.Sell(ctx, "client-2", "EUR", "BTC", decimal.NewFromInt(1), decimal.NewFromInt(100)); err == nil {
		t.Fatalf("a sell without traded balance must be rejected")
	}
}

func TestPaperTickerAndCandles(t *testing.T) {
	ctx := context.Background()
	x := New(nil)
	x.SetPrice("BTC-EUR", decimal.NewFromInt(100))

	ticker, err := x.GetTicker(ctx, "EUR", "BTC")
	if err != nil {
		t.Fatal(err)
	}
	if !ticker.Ask.GreaterThan(ticker.Bid) {
		t.Fatalf("ask %s must be above bid %s", ticker.Ask, ticker.Bid)
	}

	if _, err := x.GetTicker(ctx, "EUR", "DOGE"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want os.ErrNotExist for an unseeded market, got %v", err)
	}

	candles, err := x.GetCandles(ctx, "EUR", "BTC", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(candles) == 0 {
		t.Fatalf("simulation steps must synthesize candle history")
	}
}

func TestPaperLots(t *testing.T) {
	ctx := context.Background()
	x := New(nil)
	x.SetLots("BTC-EUR", decimal.RequireFromString("0.001"), decimal.RequireFromString("0.0001"))

	holder, err := x.GetLots(ctx)
	if err != nil {
		t.Fatal(err)
	}
	lots, ok := holder.Lookup("BTC-EUR")
	if !ok {
		t.Fatalf("BTC-EUR lots must be configured")
	}
	if !lots.MinQty.Equal(decimal.RequireFromString("0.001")) {
		t.Fatalf("unexpected min quantity %s", lots.MinQty)
	}
}
