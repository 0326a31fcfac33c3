// Copyright (c) 2023 BVK Chaitanya

package strategy

import (
	"math"

	"github.com/bvk/autotrader/gobs"
)

func closes(candles []*gobs.Candle) []float64 {
	vs := make([]float64, len(candles))
	for i, c := range candles {
		vs[i] = c.Close.InexactFloat64()
	}
	return vs
}

// SMA returns the simple moving average of the last n values, or NaN when
// there is not enough history.
func SMA(vs []float64, n int) float64 {
	if n <= 0 || len(vs) < n {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range vs[len(vs)-n:] {
		sum += v
	}
	return sum / float64(n)
}

// EMASeries returns the exponential moving average series with period n.
// The first n-1 entries are seeded with the simple average.
func EMASeries(vs []float64, n int) []float64 {
	if n <= 0 || len(vs) < n {
		return nil
	}
	out := make([]float64, len(vs))
	seed := 0.0
	for _, v := range vs[:n] {
		seed += v
	}
	seed /= float64(n)
	k := 2.0 / (float64(n) + 1.0)
	for i := range vs {
		if i < n {
			out[i] = seed
			continue
		}
		out[i] = vs[i]*k + out[i-1]*(1.0-k)
	}
	return out
}

func EMA(vs []float64, n int) float64 {
	series := EMASeries(vs, n)
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}

// RSI returns the Relative Strength Index over the last n deltas.
func RSI(vs []float64, n int) float64 {
	if n <= 0 || len(vs) < n+1 {
		return math.NaN()
	}
	gains, losses := 0.0, 0.0
	for i := len(vs) - n; i < len(vs); i++ {
		delta := vs[i] - vs[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	if losses == 0 {
		return 100.0
	}
	rs := (gains / float64(n)) / (losses / float64(n))
	return 100.0 - 100.0/(1.0+rs)
}

// Stddev returns the population standard deviation of the last n values.
func Stddev(vs []float64, n int) float64 {
	mean := SMA(vs, n)
	if math.IsNaN(mean) {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range vs[len(vs)-n:] {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

// Bollinger returns the middle, upper and lower band for the last n
// values at the given deviation multiplier.
func Bollinger(vs []float64, n int, deviation float64) (middle, upper, lower float64) {
	middle = SMA(vs, n)
	sd := Stddev(vs, n)
	if math.IsNaN(middle) || math.IsNaN(sd) {
		return math.NaN(), math.NaN(), math.NaN()
	}
	return middle, middle + deviation*sd, middle - deviation*sd
}

// StochasticK returns the raw stochastic oscillator %K over the last n
// candles, smoothed with a simple average over smooth periods.
func StochasticK(candles []*gobs.Candle, n, smooth int) float64 {
	if n <= 0 || smooth <= 0 || len(candles) < n+smooth-1 {
		return math.NaN()
	}
	raw := make([]float64, 0, smooth)
	for s := 0; s < smooth; s++ {
		window := candles[len(candles)-n-s : len(candles)-s]
		low, high := math.Inf(1), math.Inf(-1)
		for _, c := range window {
			if v := c.Low.InexactFloat64(); v < low {
				low = v
			}
			if v := c.High.InexactFloat64(); v > high {
				high = v
			}
		}
		if high == low {
			raw = append(raw, 50.0)
			continue
		}
		close := window[len(window)-1].Close.InexactFloat64()
		raw = append(raw, 100.0*(close-low)/(high-low))
	}
	sum := 0.0
	for _, v := range raw {
		sum += v
	}
	return sum / float64(len(raw))
}
