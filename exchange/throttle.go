// Copyright (c) 2023 BVK Chaitanya

package exchange

import (
	"context"
	"time"

	"github.com/bvk/autotrader/gobs"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Throttled wraps an Exchange with a client-side rate limit so that the
// trading loop cannot exceed the exchange's request quota.
type Throttled struct {
	ex Exchange

	limiter *rate.Limiter
}

var _ Exchange = &Throttled{}

func Throttle(ex Exchange, perSecond int) *Throttled {
	return &Throttled{
		ex:      ex,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

func (v *Throttled) ExchangeName() string {
	return v.ex.ExchangeName()
}

func (v *Throttled) GetOpenOrders(ctx context.Context, base, traded string) ([]*gobs.MarketOrder, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return v.ex.GetOpenOrders(ctx, base, traded)
}

func (v *Throttled) GetOrder(ctx context.Context, base, traded, serverID string) (*gobs.MarketOrder, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return v.ex.GetOrder(ctx, base, traded, serverID)
}

func (v *Throttled) GetTicker(ctx context.Context, base, traded string) (*Ticker, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return v.ex.GetTicker(ctx, base, traded)
}

func (v *Throttled) GetBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return decimal.Decimal{}, err
	}
	return v.ex.GetBalance(ctx, currency)
}

func (v *Throttled) Buy(ctx context.Context, clientID, base, traded string, size, price decimal.Decimal) (*gobs.MarketOrder, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return v.ex.Buy(ctx, clientID, base, traded, size, price)
}

func (v *Throttled) Sell(ctx context.Context, clientID, base, traded string, size, price decimal.Decimal) (*gobs.MarketOrder, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return v.ex.Sell(ctx, clientID, base, traded, size, price)
}

func (v *Throttled) Cancel(ctx context.Context, base, traded, serverID string) error {
	if err := v.limiter.Wait(ctx); err != nil {
		return err
	}
	return v.ex.Cancel(ctx, base, traded, serverID)
}

func (v *Throttled) GetLots(ctx context.Context) (*LotsHolder, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return v.ex.GetLots(ctx)
}

func (v *Throttled) GetCandles(ctx context.Context, base, traded string, interval time.Duration) ([]*gobs.Candle, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return v.ex.GetCandles(ctx, base, traded, interval)
}
