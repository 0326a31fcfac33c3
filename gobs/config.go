// Copyright (c) 2023 BVK Chaitanya

package gobs

import (
	"time"

	"github.com/shopspring/decimal"
)

type BuySettings struct {
	// MaxCoinAmount is the largest base-currency notional the configuration
	// may hold across all open positions.
	MaxCoinAmount decimal.Decimal

	// PercentageBuyAmount is the percent of MaxCoinAmount spent per buy.
	PercentageBuyAmount decimal.Decimal

	// MinOrderPrice is the smallest base-currency notional worth placing.
	MinOrderPrice decimal.Decimal

	// MaxOpenTime is how long a buy order may stay open before it is
	// canceled as outdated.
	MaxOpenTime time.Duration

	// MaxOpenOrders caps open buy orders across all markets.
	MaxOpenOrders int

	// MaxOpenPositionsPerMarket caps open buy orders for a single market.
	MaxOpenPositionsPerMarket int

	// AnyIndicator, when true, opens an order when any one leaf strategy
	// signals; otherwise all leaves must signal.
	AnyIndicator bool
}

type SellSettings struct {
	// ProfitPercentage is the take-profit margin over the bought price.
	ProfitPercentage decimal.Decimal

	// StopLossPercentage is the loss edge under the bought price.
	StopLossPercentage decimal.Decimal

	// MaxOpenTime is how long a sell order may stay open before it is
	// canceled as outdated.
	MaxOpenTime time.Duration

	// AnyIndicator mirrors BuySettings.AnyIndicator for sell signals.
	AnyIndicator bool
}

// TradeConfig is a named, durable trading configuration. At most one
// configuration is active at a time and its Running flag toggles per
// trading session.
type TradeConfig struct {
	Name string

	ExchangeName string

	BaseCurrency     string
	TradedCurrencies []string

	StrategyName string

	TickInterval time.Duration

	// CycleTimeout is the pause between two trading cycles.
	CycleTimeout time.Duration

	Buy  BuySettings
	Sell SellSettings

	Active  bool
	Running bool
}

type TradeConfigs struct {
	ConfigMap map[string]*TradeConfig
}
