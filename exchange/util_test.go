// Copyright (c) 2023 BVK Chaitanya

package exchange

import (
	"testing"

	"github.com/bvk/autotrader/gobs"
	"github.com/shopspring/decimal"
)

func TestMarketName(t *testing.T) {
	if got := MarketName("EUR", "BTC"); got != "BTC-EUR" {
		t.Fatalf("want BTC-EUR, got %s", got)
	}
}

func TestFilterSideSums(t *testing.T) {
	orders := []*gobs.MarketOrder{
		{Side: "BUY", Size: decimal.NewFromInt(2), Price: decimal.NewFromInt(10)},
		{Side: "SELL", Size: decimal.NewFromInt(1), Price: decimal.NewFromInt(20)},
		{Side: "BUY", Size: decimal.NewFromInt(3), Price: decimal.NewFromInt(5)},
	}

	buys := FilterSide(orders, "BUY")
	if len(buys) != 2 {
		t.Fatalf("want 2 buys, got %d", len(buys))
	}
	if got := SumSize(buys); !got.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("want size sum 5, got %s", got)
	}
	if got := SumValue(buys); !got.Equal(decimal.NewFromInt(35)) {
		t.Fatalf("want value sum 35, got %s", got)
	}
}
