// Copyright (c) 2023 BVK Chaitanya

package api

import (
	"fmt"

	"github.com/bvk/autotrader/gobs"
)

const ConfigSavePath = "/config/save"

type ConfigSaveRequest struct {
	Config *gobs.TradeConfig
}

type ConfigSaveResponse struct {
}

func (r *ConfigSaveRequest) Check() error {
	if r.Config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	return nil
}

const ConfigGetPath = "/config/get"

type ConfigGetRequest struct {
	Name string
}

type ConfigGetResponse struct {
	Config *gobs.TradeConfig
}

func (r *ConfigGetRequest) Check() error {
	if len(r.Name) == 0 {
		return fmt.Errorf("config name cannot be empty")
	}
	return nil
}

const ConfigListPath = "/config/list"

type ConfigListRequest struct {
}

type ConfigListResponse struct {
	Configs []*gobs.TradeConfig
}

const ConfigActivatePath = "/config/activate"

type ConfigActivateRequest struct {
	Name string
}

type ConfigActivateResponse struct {
}

func (r *ConfigActivateRequest) Check() error {
	if len(r.Name) == 0 {
		return fmt.Errorf("config name cannot be empty")
	}
	return nil
}
