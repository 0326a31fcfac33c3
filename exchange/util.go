// Copyright (c) 2023 BVK Chaitanya

package exchange

import (
	"fmt"
	"time"

	"github.com/bvk/autotrader/gobs"
	"github.com/shopspring/decimal"
)

// FilterSide returns the orders matching the given side.
func FilterSide(orders []*gobs.MarketOrder, side string) []*gobs.MarketOrder {
	var out []*gobs.MarketOrder
	for _, order := range orders {
		if order.Side == side {
			out = append(out, order)
		}
	}
	return out
}

func SumSize(orders []*gobs.MarketOrder) decimal.Decimal {
	var sum decimal.Decimal
	for _, order := range orders {
		sum = sum.Add(order.Size)
	}
	return sum
}

func SumValue(orders []*gobs.MarketOrder) decimal.Decimal {
	var sum decimal.Decimal
	for _, order := range orders {
		sum = sum.Add(order.Size.Mul(order.Price))
	}
	return sum
}

func OrderString(v *gobs.MarketOrder) string {
	return fmt.Sprintf("{ID %s %s %s-%s Size %s Price %s CreatedAt %s}",
		v.ServerOrderID, v.Side, v.TradedCurrency, v.BaseCurrency,
		v.Size.StringFixed(8), v.Price.StringFixed(8),
		v.CreateTime.Time.Format(time.DateTime))
}
