// Copyright (c) 2023 BVK Chaitanya

package gobs

import (
	"github.com/shopspring/decimal"
)

// StrategyLeaf is one indicator configuration inside a custom strategy.
// Kind selects the indicator; only the parameters meaningful for that
// kind are consulted.
type StrategyLeaf struct {
	Kind string // SMA, EMA, RSI, BOLLINGER, BOLLINGER_ADVANCED, STOCHASTIC, MA_CROSSING

	Period int

	// RSI thresholds.
	TopLevel    decimal.Decimal
	BottomLevel decimal.Decimal

	// Bollinger band deviation multiplier.
	Deviation decimal.Decimal

	// BollingerAdvanced percentage offsets from the band edges.
	TopPercentage    decimal.Decimal
	BottomPercentage decimal.Decimal

	// Stochastic oscillator smoothing periods.
	SmoothFast int
	SmoothSlow int

	// MACrossing periods for the two moving averages.
	FastPeriod int
	SlowPeriod int

	// LastCrossUp records whether the fast average was above the slow
	// average when the leaf was last evaluated.
	LastCrossUp bool
}

// CustomStrategy is a named tree of strategy nodes. A node is either a
// leaf indicator or a nested custom strategy.
type CustomStrategy struct {
	Name string

	Leaves []*StrategyLeaf

	Children []*CustomStrategy
}

type CustomStrategies struct {
	StrategyMap map[string]*CustomStrategy
}

// CandleMark remembers the most recent candle a leaf strategy kind has
// already signaled on for one traded currency. A single candle must never
// trigger two fresh signals.
type CandleMark struct {
	TradedCurrency string

	StrategyKind string

	Candle *Candle
}
