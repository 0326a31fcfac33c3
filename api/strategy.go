// Copyright (c) 2023 BVK Chaitanya

package api

import (
	"fmt"

	"github.com/bvk/autotrader/gobs"
)

const StrategySavePath = "/strategy/save"

type StrategySaveRequest struct {
	Strategy *gobs.CustomStrategy
}

type StrategySaveResponse struct {
}

func (r *StrategySaveRequest) Check() error {
	if r.Strategy == nil {
		return fmt.Errorf("strategy cannot be nil")
	}
	if len(r.Strategy.Name) == 0 {
		return fmt.Errorf("strategy name cannot be empty")
	}
	return nil
}

const StrategyGetPath = "/strategy/get"

type StrategyGetRequest struct {
	Name string
}

type StrategyGetResponse struct {
	Strategy *gobs.CustomStrategy
}

func (r *StrategyGetRequest) Check() error {
	if len(r.Name) == 0 {
		return fmt.Errorf("strategy name cannot be empty")
	}
	return nil
}
