// Copyright (c) 2023 BVK Chaitanya

package trader

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bvk/autotrader/exchange"
	"github.com/bvk/autotrader/gobs"
	"github.com/shopspring/decimal"
)

// fakeExchange is a scripted exchange for the reconciler tests. Open
// orders, order details, tickers and balances are set up per test;
// placed and canceled orders are recorded for inspection.
type fakeExchange struct {
	openMap    map[string][]*gobs.MarketOrder
	orderMap   map[string]*gobs.MarketOrder
	tickerMap  map[string]*exchange.Ticker
	balanceMap map[string]decimal.Decimal
	lotsMap    map[string]*gobs.Lots
	candles    []*gobs.Candle

	buys     []*gobs.MarketOrder
	sells    []*gobs.MarketOrder
	canceled []string

	nextID int
}

var _ exchange.Exchange = &fakeExchange{}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		openMap:    make(map[string][]*gobs.MarketOrder),
		orderMap:   make(map[string]*gobs.MarketOrder),
		tickerMap:  make(map[string]*exchange.Ticker),
		balanceMap: make(map[string]decimal.Decimal),
		lotsMap:    make(map[string]*gobs.Lots),
	}
}

func (e *fakeExchange) ExchangeName() string { return "paper" }

func (e *fakeExchange) GetOpenOrders(ctx context.Context, base, traded string) ([]*gobs.MarketOrder, error) {
	return e.openMap[traded], nil
}

func (e *fakeExchange) GetOrder(ctx context.Context, base, traded, serverID string) (*gobs.MarketOrder, error) {
	order, ok := e.orderMap[serverID]
	if !ok {
		return nil, os.ErrNotExist
	}
	return order, nil
}

func (e *fakeExchange) GetTicker(ctx context.Context, base, traded string) (*exchange.Ticker, error) {
	ticker, ok := e.tickerMap[traded]
	if !ok {
		return nil, os.ErrNotExist
	}
	return ticker, nil
}

func (e *fakeExchange) GetBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	return e.balanceMap[currency], nil
}

func (e *fakeExchange) place(side, base, traded string, size, price decimal.Decimal) *gobs.MarketOrder {
	e.nextID++
	order := &gobs.MarketOrder{
		ServerOrderID:  fmt.Sprintf("server-%d", e.nextID),
		ExchangeName:   "paper",
		BaseCurrency:   base,
		TradedCurrency: traded,
		Side:           side,
		Size:           size,
		Price:          price,
		CreateTime:     gobs.RemoteTime{Time: time.Now()},
	}
	return order
}

func (e *fakeExchange) Buy(ctx context.Context, clientID, base, traded string, size, price decimal.Decimal) (*gobs.MarketOrder, error) {
	order := e.place("BUY", base, traded, size, price)
	order.ClientOrderID = clientID
	e.buys = append(e.buys, order)
	return order, nil
}

func (e *fakeExchange) Sell(ctx context.Context, clientID, base, traded string, size, price decimal.Decimal) (*gobs.MarketOrder, error) {
	order := e.place("SELL", base, traded, size, price)
	order.ClientOrderID = clientID
	e.sells = append(e.sells, order)
	return order, nil
}

func (e *fakeExchange) Cancel(ctx context.Context, base, traded, serverID string) error {
	e.canceled = append(e.canceled, serverID)
	return nil
}

func (e *fakeExchange) GetLots(ctx context.Context) (*exchange.LotsHolder, error) {
	return exchange.NewLotsHolder(e.lotsMap), nil
}

func (e *fakeExchange) GetCandles(ctx context.Context, base, traded string, interval time.Duration) ([]*gobs.Candle, error) {
	return e.candles, nil
}

func fallingCandles(n int, t0 time.Time) []*gobs.Candle {
	var candles []*gobs.Candle
	for i := 0; i < n; i++ {
		close := decimal.NewFromInt(int64(100 - i))
		candles = append(candles, &gobs.Candle{
			StartTime: gobs.RemoteTime{Time: t0.Add(time.Duration(i) * time.Minute)},
			Duration:  time.Minute,
			Low:       close.Sub(decimal.NewFromInt(1)),
			High:      close.Add(decimal.NewFromInt(1)),
			Open:      close,
			Close:     close,
		})
	}
	return candles
}

func risingCandles(n int, t0 time.Time) []*gobs.Candle {
	var candles []*gobs.Candle
	for i := 0; i < n; i++ {
		close := decimal.NewFromInt(int64(100 + i))
		candles = append(candles, &gobs.Candle{
			StartTime: gobs.RemoteTime{Time: t0.Add(time.Duration(i) * time.Minute)},
			Duration:  time.Minute,
			Low:       close.Sub(decimal.NewFromInt(1)),
			High:      close.Add(decimal.NewFromInt(1)),
			Open:      close,
			Close:     close,
		})
	}
	return candles
}
