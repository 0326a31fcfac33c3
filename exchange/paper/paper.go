// Copyright (c) 2025 BVK Chaitanya

// Package paper implements a simulated in-process exchange. Prices move
// in a random walk, limit orders fill when the price crosses them and
// balances are tracked per currency. It backs dry runs of the trading
// service and the trading engine tests.
package paper

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/bvk/autotrader/exchange"
	"github.com/bvk/autotrader/gobs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const Name = "paper"

type Options struct {
	// Volatility is the max relative price move per simulation step.
	Volatility float64

	// CandleInterval is the duration of synthesized history candles.
	CandleInterval time.Duration
}

func (v *Options) setDefaults() {
	if v.Volatility == 0 {
		v.Volatility = 0.002
	}
	if v.CandleInterval == 0 {
		v.CandleInterval = time.Minute
	}
}

type order struct {
	*gobs.MarketOrder

	open bool
}

type Exchange struct {
	opts Options

	mu sync.Mutex

	rng *rand.Rand

	priceMap map[string]decimal.Decimal

	balanceMap map[string]decimal.Decimal

	orderMap map[string]*order

	lotsMap map[string]*gobs.Lots

	historyMap map[string][]*gobs.Candle
}

func New(opts *Options) *Exchange {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	return &Exchange{
		opts:       *opts,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		priceMap:   make(map[string]decimal.Decimal),
		balanceMap: make(map[string]decimal.Decimal),
		orderMap:   make(map[string]*order),
		lotsMap:    make(map[string]*gobs.Lots),
		historyMap: make(map[string][]*gobs.Candle),
	}
}

// Deposit credits a currency balance.
func (x *Exchange) Deposit(currency string, amount decimal.Decimal) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.balanceMap[currency] = x.balanceMap[currency].Add(amount)
}

// SetPrice seeds or overrides the last price of a market.
func (x *Exchange) SetPrice(market string, price decimal.Decimal) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.priceMap[market] = price
}

// SetLots configures lot-size constraints for a market.
func (x *Exchange) SetLots(market string, minQty, stepSize decimal.Decimal) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.lotsMap[market] = &gobs.Lots{MinQty: minQty, StepSize: stepSize}
}

func (x *Exchange) ExchangeName() string {
	return Name
}

// step advances the market price by one random-walk step and fills every
// open limit order the new price crosses. Callers must hold the lock.
func (x *Exchange) step(market string) decimal.Decimal {
	price, ok := x.priceMap[market]
	if !ok || price.IsZero() {
		return decimal.Decimal{}
	}

	move := decimal.NewFromFloat(1 + x.opts.Volatility*(x.rng.Float64()*2-1))
	price = price.Mul(move)
	x.priceMap[market] = price

	x.recordCandle(market, price)

	for _, o := range x.orderMap {
		if !o.open || exchange.MarketName(o.BaseCurrency, o.TradedCurrency) != market {
			continue
		}
		filled := false
		if o.Side == "BUY" && price.LessThanOrEqual(o.Price) {
			x.balanceMap[o.TradedCurrency] = x.balanceMap[o.TradedCurrency].Add(o.Size)
			filled = true
		}
		if o.Side == "SELL" && price.GreaterThanOrEqual(o.Price) {
			value := o.Size.Mul(o.Price)
			x.balanceMap[o.BaseCurrency] = x.balanceMap[o.BaseCurrency].Add(value)
			filled = true
		}
		if filled {
			o.open = false
		}
	}
	return price
}

func (x *Exchange) recordCandle(market string, price decimal.Decimal) {
	now := time.Now()
	history := x.historyMap[market]
	if n := len(history); n > 0 {
		last := history[n-1]
		if now.Sub(last.StartTime.Time) < x.opts.CandleInterval {
			last.Close = price
			if price.GreaterThan(last.High) {
				last.High = price
			}
			if price.LessThan(last.Low) {
				last.Low = price
			}
			return
		}
	}
	history = append(history, &gobs.Candle{
		StartTime: gobs.RemoteTime{Time: now},
		Duration:  x.opts.CandleInterval,
		Open:      price,
		Close:     price,
		High:      price,
		Low:       price,
	})
	if len(history) > 1000 {
		history = history[len(history)-1000:]
	}
	x.historyMap[market] = history
}

func (x *Exchange) GetOpenOrders(ctx context.Context, base, traded string) ([]*gobs.MarketOrder, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.step(exchange.MarketName(base, traded))

	var orders []*gobs.MarketOrder
	for _, o := range x.orderMap {
		if o.open && o.BaseCurrency == base && o.TradedCurrency == traded {
			c := *o.MarketOrder
			orders = append(orders, &c)
		}
	}
	return orders, nil
}

func (x *Exchange) GetOrder(ctx context.Context, base, traded, serverID string) (*gobs.MarketOrder, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	o, ok := x.orderMap[serverID]
	if !ok {
		return nil, fmt.Errorf("order %q: %w", serverID, os.ErrNotExist)
	}
	c := *o.MarketOrder
	return &c, nil
}

func (x *Exchange) GetTicker(ctx context.Context, base, traded string) (*exchange.Ticker, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	price := x.step(exchange.MarketName(base, traded))
	if price.IsZero() {
		return nil, fmt.Errorf("market %q has no price: %w", exchange.MarketName(base, traded), os.ErrNotExist)
	}
	spread := price.Mul(decimal.NewFromFloat(0.0005))
	return &exchange.Ticker{
		ServerTime: gobs.RemoteTime{Time: time.Now()},
		Ask:        price.Add(spread),
		Bid:        price.Sub(spread),
	}, nil
}

func (x *Exchange) GetBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.balanceMap[currency], nil
}

func (x *Exchange) Buy(ctx context.Context, clientID, base, traded string, size, price decimal.Decimal) (*gobs.MarketOrder, error) {
	if !size.IsPositive() || !price.IsPositive() {
		return nil, os.ErrInvalid
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	cost := size.Mul(price)
	if x.balanceMap[base].LessThan(cost) {
		return nil, fmt.Errorf("insufficient %s balance for buy of %s", base, cost)
	}
	x.balanceMap[base] = x.balanceMap[base].Sub(cost)

	o := &order{
		MarketOrder: &gobs.MarketOrder{
			ServerOrderID:  uuid.New().String(),
			ClientOrderID:  clientID,
			ExchangeName:   Name,
			BaseCurrency:   base,
			TradedCurrency: traded,
			Side:           "BUY",
			Size:           size,
			Price:          price,
			CreateTime:     gobs.RemoteTime{Time: time.Now()},
		},
		open: true,
	}
	x.orderMap[o.ServerOrderID] = o
	c := *o.MarketOrder
	return &c, nil
}

func (x *Exchange) Sell(ctx context.Context, clientID, base, traded string, size, price decimal.Decimal) (*gobs.MarketOrder, error) {
	if !size.IsPositive() || !price.IsPositive() {
		return nil, os.ErrInvalid
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.balanceMap[traded].LessThan(size) {
		return nil, fmt.Errorf("insufficient %s balance for sell of %s", traded, size)
	}
	x.balanceMap[traded] = x.balanceMap[traded].Sub(size)

	o := &order{
		MarketOrder: &gobs.MarketOrder{
			ServerOrderID:  uuid.New().String(),
			ClientOrderID:  clientID,
			ExchangeName:   Name,
			BaseCurrency:   base,
			TradedCurrency: traded,
			Side:           "SELL",
			Size:           size,
			Price:          price,
			CreateTime:     gobs.RemoteTime{Time: time.Now()},
		},
		open: true,
	}
	x.orderMap[o.ServerOrderID] = o
	c := *o.MarketOrder
	return &c, nil
}

func (x *Exchange) Cancel(ctx context.Context, base, traded, serverID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	o, ok := x.orderMap[serverID]
	if !ok {
		return fmt.Errorf("order %q: %w", serverID, os.ErrNotExist)
	}
	if !o.open {
		return fmt.Errorf("order %q is not open: %w", serverID, os.ErrInvalid)
	}
	o.open = false
	o.Canceled = true

	if o.Side == "BUY" {
		x.balanceMap[base] = x.balanceMap[base].Add(o.Size.Mul(o.Price))
	} else {
		x.balanceMap[traded] = x.balanceMap[traded].Add(o.Size)
	}
	return nil
}

func (x *Exchange) GetLots(ctx context.Context) (*exchange.LotsHolder, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	m := make(map[string]*gobs.Lots, len(x.lotsMap))
	for market, lots := range x.lotsMap {
		c := *lots
		m[market] = &c
	}
	return exchange.NewLotsHolder(m), nil
}

func (x *Exchange) GetCandles(ctx context.Context, base, traded string, interval time.Duration) ([]*gobs.Candle, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	market := exchange.MarketName(base, traded)
	x.step(market)

	history := x.historyMap[market]
	candles := make([]*gobs.Candle, 0, len(history))
	for _, c := range history {
		cp := *c
		candles = append(candles, &cp)
	}
	return candles, nil
}
