// Copyright (c) 2023 BVK Chaitanya

package trader

import (
	"context"
	"testing"

	"github.com/bvk/autotrader/exchange"
	"github.com/bvk/autotrader/gobs"
	"github.com/shopspring/decimal"
)

func TestLotsAdvisorAdjust(t *testing.T) {
	ctx := context.Background()
	holder := exchange.NewLotsHolder(map[string]*gobs.Lots{
		"BTC-EUR": {
			MinQty:   decimal.RequireFromString("0.1"),
			StepSize: decimal.RequireFromString("0.2"),
		},
	})
	advisor := NewLotsAdvisor(holder)
	rt := &Runtime{}

	// 0.3 is above the minimum but not on a step boundary; it rounds down
	// to 0.2.
	got := advisor.Adjust(ctx, rt, "BTC-EUR", decimal.RequireFromString("0.3"))
	if !got.Equal(decimal.RequireFromString("0.2")) {
		t.Fatalf("want 0.2, got %s", got)
	}

	// 0.05 is below the exchange minimum; the trade must not happen.
	got = advisor.Adjust(ctx, rt, "BTC-EUR", decimal.RequireFromString("0.05"))
	if !got.IsZero() {
		t.Fatalf("want zero below the minimum, got %s", got)
	}

	// An exact step multiple passes through unchanged.
	got = advisor.Adjust(ctx, rt, "BTC-EUR", decimal.RequireFromString("0.4"))
	if !got.Equal(decimal.RequireFromString("0.4")) {
		t.Fatalf("want 0.4, got %s", got)
	}

	// Markets without lot data are unconstrained.
	got = advisor.Adjust(ctx, rt, "ETH-EUR", decimal.RequireFromString("0.123"))
	if !got.Equal(decimal.RequireFromString("0.123")) {
		t.Fatalf("want 0.123, got %s", got)
	}
}

func TestLotsAdvisorZeroStep(t *testing.T) {
	ctx := context.Background()
	holder := exchange.NewLotsHolder(map[string]*gobs.Lots{
		"BTC-EUR": {MinQty: decimal.RequireFromString("0.1")},
	})
	advisor := NewLotsAdvisor(holder)
	rt := &Runtime{}

	got := advisor.Adjust(ctx, rt, "BTC-EUR", decimal.RequireFromString("0.35"))
	if !got.Equal(decimal.RequireFromString("0.35")) {
		t.Fatalf("a zero step size must not constrain the quantity, got %s", got)
	}
}
