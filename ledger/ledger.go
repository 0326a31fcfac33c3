// Copyright (c) 2023 BVK Chaitanya

// Package ledger keeps the in-memory mirror of the orders the trading
// engine believes are open or attributed, backed by the key-value store
// for restart recovery.
//
// Durable writes always happen before the paired in-memory mutation, so
// that a crash between the two can never leave an order known in memory
// but absent from the store.
package ledger

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/bvk/autotrader/gobs"
	"github.com/bvk/autotrader/kvutil"
	"github.com/bvkgo/kv"
)

type Ledger struct {
	exchangeName string

	buyOrderMap  map[string]*gobs.MarketOrder
	sellOrderMap map[string]*gobs.MarketOrder

	basketMap map[string]*ProfitBasket

	matchingMap map[string]*gobs.OrderMatching

	markMap map[string]*gobs.CandleMark
}

func New(exchangeName string) *Ledger {
	l := &Ledger{exchangeName: exchangeName}
	l.Clear()
	return l
}

// Clear wipes all in-memory state. Durable rows are untouched.
func (l *Ledger) Clear() {
	l.buyOrderMap = make(map[string]*gobs.MarketOrder)
	l.sellOrderMap = make(map[string]*gobs.MarketOrder)
	l.basketMap = make(map[string]*ProfitBasket)
	l.matchingMap = make(map[string]*gobs.OrderMatching)
	l.markMap = make(map[string]*gobs.CandleMark)
}

// Load rebuilds the in-memory ledger from the store for the currencies of
// the given configuration. Profit baskets are loaded first so that a buy
// order that closed before a restart lands in exactly one place; buy
// orders already matched away to a sell are dropped from the open-buy
// view at the end.
func (l *Ledger) Load(ctx context.Context, db kv.Database, cfg *gobs.TradeConfig) error {
	l.Clear()

	load := func(ctx context.Context, r kv.Reader) error {
		// Profit baskets.
		begin, end := kvutil.PathRange(ProfitsKeyspace + "/" + l.exchangeName)
		loadProfit := func(ctx context.Context, r kv.Reader, key string, order *gobs.MarketOrder) error {
			if !slices.Contains(cfg.TradedCurrencies, order.TradedCurrency) {
				return nil
			}
			basket, ok := l.basketMap[order.TradedCurrency]
			if !ok {
				basket = newProfitBasket(order.TradedCurrency)
				l.basketMap[order.TradedCurrency] = basket
			}
			basket.add(order)
			return nil
		}
		if err := kvutil.Ascend(ctx, r, begin, end, loadProfit); err != nil {
			return fmt.Errorf("could not load profit baskets: %w", err)
		}

		// Open buy orders, skipping any that already live in a basket.
		begin, end = kvutil.PathRange(BuyOrdersKeyspace + "/" + l.exchangeName)
		loadBuy := func(ctx context.Context, r kv.Reader, key string, order *gobs.MarketOrder) error {
			if !slices.Contains(cfg.TradedCurrencies, order.TradedCurrency) {
				return nil
			}
			if basket, ok := l.basketMap[order.TradedCurrency]; ok && basket.Contains(order.ServerOrderID) {
				return nil
			}
			l.buyOrderMap[order.ServerOrderID] = order
			return nil
		}
		if err := kvutil.Ascend(ctx, r, begin, end, loadBuy); err != nil {
			return fmt.Errorf("could not load buy orders: %w", err)
		}

		// Open sell orders.
		begin, end = kvutil.PathRange(SellOrdersKeyspace + "/" + l.exchangeName)
		loadSell := func(ctx context.Context, r kv.Reader, key string, order *gobs.MarketOrder) error {
			if !slices.Contains(cfg.TradedCurrencies, order.TradedCurrency) {
				return nil
			}
			l.sellOrderMap[order.ServerOrderID] = order
			return nil
		}
		if err := kvutil.Ascend(ctx, r, begin, end, loadSell); err != nil {
			return fmt.Errorf("could not load sell orders: %w", err)
		}

		// Order matchings.
		begin, end = kvutil.PathRange(MatchingsKeyspace + "/" + l.exchangeName)
		loadMatching := func(ctx context.Context, r kv.Reader, key string, m *gobs.OrderMatching) error {
			l.matchingMap[m.SellServerID] = m
			return nil
		}
		if err := kvutil.Ascend(ctx, r, begin, end, loadMatching); err != nil {
			return fmt.Errorf("could not load order matchings: %w", err)
		}

		// Candle marks for the configured currencies.
		begin, end = kvutil.PathRange(MarksKeyspace)
		loadMark := func(ctx context.Context, r kv.Reader, key string, m *gobs.CandleMark) error {
			if !slices.Contains(cfg.TradedCurrencies, m.TradedCurrency) {
				return nil
			}
			l.markMap[markKey(m.TradedCurrency, m.StrategyKind)] = m
			return nil
		}
		if err := kvutil.Ascend(ctx, r, begin, end, loadMark); err != nil {
			return fmt.Errorf("could not load candle marks: %w", err)
		}
		return nil
	}
	if err := kv.WithReader(ctx, db, load); err != nil {
		return err
	}

	// A buy order referenced as the matched side of a sell has already
	// progressed to sold/being-sold and must leave the open-buy view.
	for _, m := range l.matchingMap {
		if m.BuyOrder != nil {
			delete(l.buyOrderMap, m.BuyOrder.ServerOrderID)
		}
	}
	return nil
}

// AddBuyOrder persists the order and adds it to the open-buy view.
func (l *Ledger) AddBuyOrder(ctx context.Context, db kv.Database, order *gobs.MarketOrder) error {
	key := buyOrderKey(l.exchangeName, order.ServerOrderID)
	order.Key = key
	if err := kvutil.SetDB(ctx, db, key, order); err != nil {
		return err
	}
	l.buyOrderMap[order.ServerOrderID] = order
	return nil
}

// RemoveBuyOrder deletes the durable row and drops the order from the
// open-buy view.
func (l *Ledger) RemoveBuyOrder(ctx context.Context, db kv.Database, serverID string) error {
	remove := func(ctx context.Context, rw kv.ReadWriter) error {
		return rw.Delete(ctx, buyOrderKey(l.exchangeName, serverID))
	}
	if err := kv.WithReadWriter(ctx, db, remove); err != nil {
		return err
	}
	delete(l.buyOrderMap, serverID)
	return nil
}

func (l *Ledger) ContainsBuyOrder(serverID string) bool {
	_, ok := l.buyOrderMap[serverID]
	return ok
}

func (l *Ledger) BuyOrderCount() int {
	return len(l.buyOrderMap)
}

// BuyOrders returns the open buy orders oldest-first.
func (l *Ledger) BuyOrders() []*gobs.MarketOrder {
	return sortOrders(l.buyOrderMap)
}

// MarketBuyOrderCount counts open buy orders for one traded currency.
func (l *Ledger) MarketBuyOrderCount(traded string) int {
	n := 0
	for _, order := range l.buyOrderMap {
		if order.TradedCurrency == traded {
			n++
		}
	}
	return n
}

func (l *Ledger) AddSellOrder(ctx context.Context, db kv.Database, order *gobs.MarketOrder) error {
	key := sellOrderKey(l.exchangeName, order.ServerOrderID)
	order.Key = key
	if err := kvutil.SetDB(ctx, db, key, order); err != nil {
		return err
	}
	l.sellOrderMap[order.ServerOrderID] = order
	return nil
}

func (l *Ledger) RemoveSellOrder(ctx context.Context, db kv.Database, serverID string) error {
	remove := func(ctx context.Context, rw kv.ReadWriter) error {
		return rw.Delete(ctx, sellOrderKey(l.exchangeName, serverID))
	}
	if err := kv.WithReadWriter(ctx, db, remove); err != nil {
		return err
	}
	delete(l.sellOrderMap, serverID)
	return nil
}

func (l *Ledger) ContainsSellOrder(serverID string) bool {
	_, ok := l.sellOrderMap[serverID]
	return ok
}

func (l *Ledger) SellOrderCount() int {
	return len(l.sellOrderMap)
}

func (l *Ledger) SellOrders() []*gobs.MarketOrder {
	return sortOrders(l.sellOrderMap)
}

// MoveBuyToProfit folds a closed buy order into the traded currency's
// profit basket, creating the basket when absent. The buy row and the
// profit row are updated in a single transaction.
func (l *Ledger) MoveBuyToProfit(ctx context.Context, db kv.Database, order *gobs.MarketOrder) error {
	move := func(ctx context.Context, rw kv.ReadWriter) error {
		if err := rw.Delete(ctx, buyOrderKey(l.exchangeName, order.ServerOrderID)); err != nil {
			return err
		}
		return kvutil.Set(ctx, rw, profitOrderKey(l.exchangeName, order.TradedCurrency, order.ServerOrderID), order)
	}
	if err := kv.WithReadWriter(ctx, db, move); err != nil {
		return err
	}

	delete(l.buyOrderMap, order.ServerOrderID)
	basket, ok := l.basketMap[order.TradedCurrency]
	if !ok {
		basket = newProfitBasket(order.TradedCurrency)
		l.basketMap[order.TradedCurrency] = basket
	}
	basket.add(order)
	return nil
}

// AddProfitOrder puts a buy order (back) into the traded currency's
// basket, e.g. when its matched sell order was canceled.
func (l *Ledger) AddProfitOrder(ctx context.Context, db kv.Database, order *gobs.MarketOrder) error {
	key := profitOrderKey(l.exchangeName, order.TradedCurrency, order.ServerOrderID)
	if err := kvutil.SetDB(ctx, db, key, order); err != nil {
		return err
	}
	basket, ok := l.basketMap[order.TradedCurrency]
	if !ok {
		basket = newProfitBasket(order.TradedCurrency)
		l.basketMap[order.TradedCurrency] = basket
	}
	basket.add(order)
	return nil
}

// RemoveProfitOrder drops one order from the traded currency's basket.
// The basket itself is dropped when its last member goes away.
func (l *Ledger) RemoveProfitOrder(ctx context.Context, db kv.Database, traded, serverID string) error {
	remove := func(ctx context.Context, rw kv.ReadWriter) error {
		return rw.Delete(ctx, profitOrderKey(l.exchangeName, traded, serverID))
	}
	if err := kv.WithReadWriter(ctx, db, remove); err != nil {
		return err
	}
	if basket, ok := l.basketMap[traded]; ok {
		basket.remove(serverID)
		if basket.Len() == 0 {
			delete(l.basketMap, traded)
		}
	}
	return nil
}

// ProfitBasket returns the basket for a traded currency. The second
// return value is false when nothing bought is awaiting resale, which is
// a normal condition and not an error.
func (l *Ledger) ProfitBasket(traded string) (*ProfitBasket, bool) {
	basket, ok := l.basketMap[traded]
	return basket, ok
}

// ResetBasket deletes every member of the traded currency's basket from
// the store and drops the basket. Used when the exchange balance cannot
// cover the basket and the local view is no longer trustworthy.
func (l *Ledger) ResetBasket(ctx context.Context, db kv.Database, traded string) error {
	basket, ok := l.basketMap[traded]
	if !ok {
		return nil
	}
	reset := func(ctx context.Context, rw kv.ReadWriter) error {
		for _, order := range basket.Orders() {
			if err := rw.Delete(ctx, profitOrderKey(l.exchangeName, traded, order.ServerOrderID)); err != nil {
				return err
			}
		}
		return nil
	}
	if err := kv.WithReadWriter(ctx, db, reset); err != nil {
		return err
	}
	delete(l.basketMap, traded)
	return nil
}

func (l *Ledger) AddMatching(ctx context.Context, db kv.Database, m *gobs.OrderMatching) error {
	key := matchingKey(l.exchangeName, m.SellServerID)
	if err := kvutil.SetDB(ctx, db, key, m); err != nil {
		return err
	}
	l.matchingMap[m.SellServerID] = m
	return nil
}

func (l *Ledger) Matching(sellServerID string) (*gobs.OrderMatching, bool) {
	m, ok := l.matchingMap[sellServerID]
	return m, ok
}

func (l *Ledger) RemoveMatching(ctx context.Context, db kv.Database, sellServerID string) error {
	remove := func(ctx context.Context, rw kv.ReadWriter) error {
		return rw.Delete(ctx, matchingKey(l.exchangeName, sellServerID))
	}
	if err := kv.WithReadWriter(ctx, db, remove); err != nil {
		return err
	}
	delete(l.matchingMap, sellServerID)
	return nil
}

// CandleMark returns the last candle the given leaf strategy kind has
// signaled on for a traded currency.
func (l *Ledger) CandleMark(traded, kind string) (*gobs.CandleMark, bool) {
	m, ok := l.markMap[markKey(traded, kind)]
	return m, ok
}

func (l *Ledger) SetCandleMark(ctx context.Context, db kv.Database, m *gobs.CandleMark) error {
	key := markKey(m.TradedCurrency, m.StrategyKind)
	if err := kvutil.SetDB(ctx, db, key, m); err != nil {
		return err
	}
	l.markMap[key] = m
	return nil
}

// HasData reports whether the store already holds order, profit or
// matching rows for this exchange. A fresh configuration start uses this
// to detect stale local data from a previous session.
func (l *Ledger) HasData(ctx context.Context, db kv.Database) (bool, error) {
	found := false
	check := func(ctx context.Context, r kv.Reader) error {
		for _, space := range []string{BuyOrdersKeyspace, SellOrdersKeyspace, ProfitsKeyspace, MatchingsKeyspace} {
			begin, end := kvutil.PathRange(space + "/" + l.exchangeName)
			key, _, err := kvutil.First[gobs.MarketOrder](ctx, r, begin, end)
			if err != nil && len(key) == 0 {
				return err
			}
			if len(key) != 0 {
				found = true
				return nil
			}
		}
		return nil
	}
	if err := kv.WithReader(ctx, db, check); err != nil {
		return false, err
	}
	return found, nil
}

// DeleteAll removes every durable row for this exchange, including candle
// marks for the configured currencies. Used on an explicit full reset.
func (l *Ledger) DeleteAll(ctx context.Context, db kv.Database, cfg *gobs.TradeConfig) error {
	remove := func(ctx context.Context, rw kv.ReadWriter) error {
		for _, space := range []string{BuyOrdersKeyspace, SellOrdersKeyspace, ProfitsKeyspace, MatchingsKeyspace} {
			begin, end := kvutil.PathRange(space + "/" + l.exchangeName)
			if err := deleteRange(ctx, rw, begin, end); err != nil {
				return err
			}
		}
		for _, traded := range cfg.TradedCurrencies {
			begin, end := kvutil.PathRange(MarksKeyspace + "/" + traded)
			if err := deleteRange(ctx, rw, begin, end); err != nil {
				return err
			}
		}
		return nil
	}
	if err := kv.WithReadWriter(ctx, db, remove); err != nil {
		return err
	}
	l.Clear()
	return nil
}

func sortOrders(m map[string]*gobs.MarketOrder) []*gobs.MarketOrder {
	orders := make([]*gobs.MarketOrder, 0, len(m))
	for _, order := range m {
		orders = append(orders, order)
	}
	sort.Slice(orders, func(i, j int) bool {
		if a, b := orders[i].CreateTime.Time, orders[j].CreateTime.Time; !a.Equal(b) {
			return a.Before(b)
		}
		return orders[i].ServerOrderID < orders[j].ServerOrderID
	})
	return orders
}
