// Copyright (c) 2023 BVK Chaitanya

package gobs

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

type KeyValue struct {
	Key   string
	Value []byte
}

type TelegramState struct {
	UserChatIDMap map[string]int64
}

func NewByTypename(typename string) (any, error) {
	var v any
	switch typename {
	case "KeyValue":
		v = new(KeyValue)
	case "MarketOrder":
		v = new(MarketOrder)
	case "OrderMatching":
		v = new(OrderMatching)
	case "Candles":
		v = new(Candles)
	case "CandleMark":
		v = new(CandleMark)
	case "CustomStrategy":
		v = new(CustomStrategy)
	case "TradeConfig":
		v = new(TradeConfig)
	case "LotsMap":
		v = new(LotsMap)
	case "EngineState":
		v = new(EngineState)
	case "TelegramState":
		v = new(TelegramState)
	default:
		return nil, fmt.Errorf("unsupported type name %q", typename)
	}
	return v, nil
}

func Clone[PT *T, T any](v PT) (PT, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	x := new(T)
	if err := gob.NewDecoder(bytes.NewReader(buf.Bytes())).Decode(x); err != nil {
		return nil, err
	}
	return x, nil
}
