// Copyright (c) 2023 BVK Chaitanya

package gobs

import (
	"time"

	"github.com/shopspring/decimal"
)

type RemoteTime struct {
	time.Time
}

// MarketOrder is a buy or sell order on an exchange market. Orders are
// identified by the exchange-assigned ServerOrderID; Key holds the durable
// store row key once the order is persisted locally.
type MarketOrder struct {
	Key string

	ServerOrderID string
	ClientOrderID string

	ExchangeName string

	BaseCurrency   string
	TradedCurrency string

	Side string // "BUY" or "SELL"

	Size  decimal.Decimal
	Price decimal.Decimal

	CreateTime RemoteTime

	Canceled bool
}

// OrderMatching links a sell order to the buy order position it liquidates.
type OrderMatching struct {
	SellServerID string

	BuyOrder *MarketOrder
}

type Candle struct {
	StartTime RemoteTime
	Duration  time.Duration

	Low  decimal.Decimal
	High decimal.Decimal

	Open  decimal.Decimal
	Close decimal.Decimal

	Volume decimal.Decimal
}

type Candles struct {
	Candles []*Candle
}

// Lots holds exchange-imposed minimum quantity and quantity step
// granularity for one market.
type Lots struct {
	MinQty   decimal.Decimal
	StepSize decimal.Decimal
}

type LotsMap struct {
	MarketLotsMap map[string]*Lots
}
