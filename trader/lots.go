// Copyright (c) 2023 BVK Chaitanya

package trader

import (
	"context"

	"github.com/bvk/autotrader/exchange"
	"github.com/shopspring/decimal"
)

// LotsAdvisor applies exchange lot-size constraints to a desired trade
// quantity. The holder snapshot is taken once per trading session.
type LotsAdvisor struct {
	holder *exchange.LotsHolder
}

func NewLotsAdvisor(holder *exchange.LotsHolder) *LotsAdvisor {
	return &LotsAdvisor{holder: holder}
}

// Adjust rounds the desired quantity down to a valid lot for the market.
// Without lot data the quantity is returned unchanged. A quantity below
// the market minimum yields zero, which callers must treat as "cannot
// trade"; the user is told why.
func (v *LotsAdvisor) Adjust(ctx context.Context, rt *Runtime, market string, desired decimal.Decimal) decimal.Decimal {
	lots, ok := v.holder.Lookup(market)
	if !ok {
		return desired
	}
	if desired.LessThan(lots.MinQty) {
		rt.Notify(ctx, "default", "quantity %s for market %s is below the exchange minimum %s; not trading",
			desired, market, lots.MinQty)
		return decimal.Decimal{}
	}
	if lots.StepSize.IsZero() {
		return desired
	}
	return desired.Sub(desired.Mod(lots.StepSize))
}
