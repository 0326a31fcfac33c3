// Copyright (c) 2023 BVK Chaitanya

package ledger

import (
	"path"
)

const (
	// Keyspaces for the durable ledger rows. Every row is a gob record
	// stored under a path-like key.
	BuyOrdersKeyspace  = "/orders/buy"
	SellOrdersKeyspace = "/orders/sell"
	ProfitsKeyspace    = "/profits"
	MatchingsKeyspace  = "/matchings"
	MarksKeyspace      = "/marks"
	CandlesKeyspace    = "/candles"
)

func buyOrderKey(exchange, serverID string) string {
	return path.Join(BuyOrdersKeyspace, exchange, serverID)
}

func sellOrderKey(exchange, serverID string) string {
	return path.Join(SellOrdersKeyspace, exchange, serverID)
}

func profitOrderKey(exchange, traded, serverID string) string {
	return path.Join(ProfitsKeyspace, exchange, traded, serverID)
}

func matchingKey(exchange, sellServerID string) string {
	return path.Join(MatchingsKeyspace, exchange, sellServerID)
}

func markKey(traded, kind string) string {
	return path.Join(MarksKeyspace, traded, kind)
}

// CandlesKey returns the row key for cached market history.
func CandlesKey(exchange, base, traded string, interval string) string {
	return path.Join(CandlesKeyspace, exchange, traded+"-"+base, interval)
}
