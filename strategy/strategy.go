// Copyright (c) 2023 BVK Chaitanya

// Package strategy evaluates trader-configured indicator trees into
// buy/sell signals over market candle history.
package strategy

import (
	"fmt"
	"math"

	"github.com/bvk/autotrader/gobs"
)

// Leaf strategy kinds. A custom strategy combines any number of leaves
// (and nested custom strategies) under one any/all policy.
const (
	KindSMA               = "SMA"
	KindEMA               = "EMA"
	KindRSI               = "RSI"
	KindBollinger         = "BOLLINGER"
	KindBollingerAdvanced = "BOLLINGER_ADVANCED"
	KindStochastic        = "STOCHASTIC"
	KindMACrossing        = "MA_CROSSING"
)

type Mode int

const (
	Buy Mode = iota
	Sell
)

func (m Mode) String() string {
	if m == Sell {
		return "sell"
	}
	return "buy"
}

// CheckLeaf validates the parameters of one strategy leaf.
func CheckLeaf(leaf *gobs.StrategyLeaf) error {
	switch leaf.Kind {
	case KindSMA, KindEMA, KindRSI, KindBollinger, KindBollingerAdvanced:
		if leaf.Period <= 0 {
			return fmt.Errorf("leaf %s period must be positive", leaf.Kind)
		}
	case KindStochastic:
		if leaf.Period <= 0 || leaf.SmoothFast <= 0 {
			return fmt.Errorf("leaf %s periods must be positive", leaf.Kind)
		}
	case KindMACrossing:
		if leaf.FastPeriod <= 0 || leaf.SlowPeriod <= leaf.FastPeriod {
			return fmt.Errorf("leaf %s wants 0 < fast < slow periods", leaf.Kind)
		}
	default:
		return fmt.Errorf("unsupported strategy kind %q", leaf.Kind)
	}
	return nil
}

// EvaluateLeaf computes one leaf's signal over the candle history.
// MACrossing leaves additionally update their LastCrossUp state; callers
// decide when the mutated settings are persisted.
func EvaluateLeaf(leaf *gobs.StrategyLeaf, candles []*gobs.Candle, mode Mode) bool {
	if len(candles) == 0 {
		return false
	}
	vs := closes(candles)
	last := vs[len(vs)-1]

	switch leaf.Kind {
	case KindSMA:
		avg := SMA(vs, leaf.Period)
		if math.IsNaN(avg) {
			return false
		}
		if mode == Buy {
			return last < avg
		}
		return last > avg

	case KindEMA:
		avg := EMA(vs, leaf.Period)
		if math.IsNaN(avg) {
			return false
		}
		if mode == Buy {
			return last < avg
		}
		return last > avg

	case KindRSI:
		rsi := RSI(vs, leaf.Period)
		if math.IsNaN(rsi) {
			return false
		}
		if mode == Buy {
			return rsi <= leaf.BottomLevel.InexactFloat64()
		}
		return rsi >= leaf.TopLevel.InexactFloat64()

	case KindBollinger:
		_, upper, lower := Bollinger(vs, leaf.Period, leaf.Deviation.InexactFloat64())
		if math.IsNaN(upper) {
			return false
		}
		if mode == Buy {
			return last <= lower
		}
		return last >= upper

	case KindBollingerAdvanced:
		middle, upper, lower := Bollinger(vs, leaf.Period, leaf.Deviation.InexactFloat64())
		if math.IsNaN(upper) {
			return false
		}
		if mode == Buy {
			edge := lower + (middle-lower)*leaf.BottomPercentage.InexactFloat64()/100.0
			return last <= edge
		}
		edge := upper - (upper-middle)*leaf.TopPercentage.InexactFloat64()/100.0
		return last >= edge

	case KindStochastic:
		k := StochasticK(candles, leaf.Period, leaf.SmoothFast)
		if math.IsNaN(k) {
			return false
		}
		if mode == Buy {
			return k <= leaf.BottomLevel.InexactFloat64()
		}
		return k >= leaf.TopLevel.InexactFloat64()

	case KindMACrossing:
		fast := SMA(vs, leaf.FastPeriod)
		slow := SMA(vs, leaf.SlowPeriod)
		if math.IsNaN(fast) || math.IsNaN(slow) {
			return false
		}
		up := fast > slow
		crossed := up != leaf.LastCrossUp
		leaf.LastCrossUp = up
		if !crossed {
			return false
		}
		if mode == Buy {
			return up
		}
		return !up
	}
	return false
}
