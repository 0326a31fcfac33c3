// Copyright (c) 2023 BVK Chaitanya

package exchange

import (
	"context"
	"time"

	"github.com/bvk/autotrader/gobs"
	"github.com/shopspring/decimal"
)

// Ticker is a point-in-time best ask/bid quote for one market.
type Ticker struct {
	ServerTime gobs.RemoteTime

	Ask decimal.Decimal
	Bid decimal.Decimal
}

// Exchange is the access layer for one stock exchange. Implementations
// talk to the exchange over its wire protocol; the trading core only ever
// sees this interface.
type Exchange interface {
	ExchangeName() string

	// GetOpenOrders returns all open orders for one market, both sides.
	GetOpenOrders(ctx context.Context, base, traded string) ([]*gobs.MarketOrder, error)

	// GetOrder returns the current exchange-side view of one order. The
	// returned order's Canceled flag is authoritative.
	GetOrder(ctx context.Context, base, traded, serverID string) (*gobs.MarketOrder, error)

	GetTicker(ctx context.Context, base, traded string) (*Ticker, error)

	GetBalance(ctx context.Context, currency string) (decimal.Decimal, error)

	Buy(ctx context.Context, clientID, base, traded string, size, price decimal.Decimal) (*gobs.MarketOrder, error)
	Sell(ctx context.Context, clientID, base, traded string, size, price decimal.Decimal) (*gobs.MarketOrder, error)

	Cancel(ctx context.Context, base, traded, serverID string) error

	// GetLots returns the lot-size constraints for all markets. Exchanges
	// without lot constraints may return an empty holder.
	GetLots(ctx context.Context) (*LotsHolder, error)

	GetCandles(ctx context.Context, base, traded string, interval time.Duration) ([]*gobs.Candle, error)
}
