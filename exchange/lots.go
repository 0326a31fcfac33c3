// Copyright (c) 2023 BVK Chaitanya

package exchange

import (
	"github.com/bvk/autotrader/gobs"
)

// LotsHolder is a read-only snapshot of per-market lot-size constraints,
// fetched once per trading session.
type LotsHolder struct {
	lotsMap map[string]*gobs.Lots
}

func NewLotsHolder(m map[string]*gobs.Lots) *LotsHolder {
	if m == nil {
		m = make(map[string]*gobs.Lots)
	}
	return &LotsHolder{lotsMap: m}
}

// MarketName returns the canonical market key for a currency pair.
func MarketName(base, traded string) string {
	return traded + "-" + base
}

// Lookup returns the lot constraints for a market. The second return
// value is false when the exchange imposes no known constraint.
func (v *LotsHolder) Lookup(market string) (*gobs.Lots, bool) {
	if v == nil {
		return nil, false
	}
	lots, ok := v.lotsMap[market]
	return lots, ok
}

func (v *LotsHolder) Size() int {
	if v == nil {
		return 0
	}
	return len(v.lotsMap)
}
