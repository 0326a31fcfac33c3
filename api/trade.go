// Copyright (c) 2023 BVK Chaitanya

package api

import "time"

const TradeStartPath = "/trade/start"

type TradeStartRequest struct {
}

type TradeStartResponse struct {
	ConfigName string
}

const TradeStopPath = "/trade/stop"

type TradeStopRequest struct {
}

type TradeStopResponse struct {
}

const TradeResetPath = "/trade/reset"

type TradeResetRequest struct {
	// Discard, when true, drops all locally recorded orders, baskets,
	// matchings and candle marks before the next trading session starts.
	Discard bool
}

type TradeResetResponse struct {
}

const TradeStatusPath = "/trade/status"

type TradeStatusRequest struct {
}

type TradeStatusResponse struct {
	Running bool

	ConfigName string

	ServerTime time.Time
}
