// Copyright (c) 2023 BVK Chaitanya

package gobs

import (
	"time"
)

type EngineEventType string

const (
	TradingStarted EngineEventType = "TRADING_STARTED"
	TradingStopped EngineEventType = "TRADING_STOPPED"
	StaleDataFound EngineEventType = "STALE_DATA_FOUND"
	CycleComplete  EngineEventType = "CYCLE_COMPLETE"
)

// EngineEvent is published on the engine's event topic at the state
// transitions of a trading session.
type EngineEvent struct {
	Type EngineEventType

	ConfigName string

	At time.Time

	Message string
}

// EngineState is the durable record of the trading engine across
// restarts.
type EngineState struct {
	ActiveConfig string

	ResetRequested bool
}
