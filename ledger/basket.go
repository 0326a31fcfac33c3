// Copyright (c) 2023 BVK Chaitanya

package ledger

import (
	"sort"

	"github.com/bvk/autotrader/gobs"
	"github.com/shopspring/decimal"
)

// ProfitBasket holds the buy orders that have closed but are not yet
// resold, for one traded currency.
type ProfitBasket struct {
	traded string

	orderMap map[string]*gobs.MarketOrder
}

func newProfitBasket(traded string) *ProfitBasket {
	return &ProfitBasket{
		traded:   traded,
		orderMap: make(map[string]*gobs.MarketOrder),
	}
}

func (b *ProfitBasket) TradedCurrency() string {
	return b.traded
}

// Balance is the sum of the constituent order quantities.
func (b *ProfitBasket) Balance() decimal.Decimal {
	var sum decimal.Decimal
	for _, order := range b.orderMap {
		sum = sum.Add(order.Size)
	}
	return sum
}

func (b *ProfitBasket) Len() int {
	return len(b.orderMap)
}

func (b *ProfitBasket) Contains(serverID string) bool {
	_, ok := b.orderMap[serverID]
	return ok
}

// Orders returns the basket members ordered oldest-first so every cycle
// processes them deterministically.
func (b *ProfitBasket) Orders() []*gobs.MarketOrder {
	orders := make([]*gobs.MarketOrder, 0, len(b.orderMap))
	for _, order := range b.orderMap {
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

func (b *ProfitBasket) add(order *gobs.MarketOrder) {
	b.orderMap[order.ServerOrderID] = order
}

func (b *ProfitBasket) remove(serverID string) {
	delete(b.orderMap, serverID)
}
