// Copyright (c) 2023 BVK Chaitanya

package trader

import (
	"context"
	"fmt"
	"os"
	"path"
	"sync"

	"github.com/bvk/autotrader/gobs"
	"github.com/bvk/autotrader/kvutil"
	"github.com/bvkgo/kv"
)

const ConfigsKeyspace = "/configs"

func configKey(name string) string {
	return path.Join(ConfigsKeyspace, name)
}

// Configs is the durable holder of named trade configurations. Structural
// edits are rejected while a configuration is running; they may only be
// applied between a stop and the next start.
type Configs struct {
	db kv.Database

	mu sync.Mutex

	running string
}

func NewConfigs(db kv.Database) *Configs {
	return &Configs{db: db}
}

func (c *Configs) Check(cfg *gobs.TradeConfig) error {
	if len(cfg.Name) == 0 {
		return fmt.Errorf("configuration name cannot be empty")
	}
	if len(cfg.ExchangeName) == 0 {
		return fmt.Errorf("configuration %q needs an exchange name", cfg.Name)
	}
	if len(cfg.BaseCurrency) == 0 || len(cfg.TradedCurrencies) == 0 {
		return fmt.Errorf("configuration %q needs base and traded currencies", cfg.Name)
	}
	if len(cfg.StrategyName) == 0 {
		return fmt.Errorf("configuration %q needs a strategy name", cfg.Name)
	}
	if cfg.CycleTimeout <= 0 {
		return fmt.Errorf("configuration %q needs a positive cycle timeout", cfg.Name)
	}
	return nil
}

// Save creates or replaces a configuration. Rejected while the named
// configuration is running.
func (c *Configs) Save(ctx context.Context, cfg *gobs.TradeConfig) error {
	if err := c.Check(cfg); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running == cfg.Name {
		return fmt.Errorf("configuration %q is running: %w", cfg.Name, os.ErrInvalid)
	}
	return kvutil.SetDB(ctx, c.db, configKey(cfg.Name), cfg)
}

func (c *Configs) Get(ctx context.Context, name string) (*gobs.TradeConfig, error) {
	cfg, err := kvutil.GetDB[gobs.TradeConfig](ctx, c.db, configKey(name))
	if err != nil {
		return nil, fmt.Errorf("could not load configuration %q: %w", name, err)
	}
	return cfg, nil
}

func (c *Configs) List(ctx context.Context) ([]*gobs.TradeConfig, error) {
	var cfgs []*gobs.TradeConfig
	begin, end := kvutil.PathRange(ConfigsKeyspace)
	collect := func(ctx context.Context, r kv.Reader, key string, cfg *gobs.TradeConfig) error {
		cfgs = append(cfgs, cfg)
		return nil
	}
	if err := kvutil.AscendDB(ctx, c.db, begin, end, collect); err != nil {
		return nil, err
	}
	return cfgs, nil
}

// Activate marks one configuration active and deactivates all others.
func (c *Configs) Activate(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.running) != 0 {
		return fmt.Errorf("configuration %q is running: %w", c.running, os.ErrInvalid)
	}

	update := func(ctx context.Context, rw kv.ReadWriter) error {
		found := false
		begin, end := kvutil.PathRange(ConfigsKeyspace)
		visit := func(ctx context.Context, r kv.Reader, key string, cfg *gobs.TradeConfig) error {
			active := cfg.Name == name
			if active {
				found = true
			}
			if cfg.Active == active {
				return nil
			}
			cfg.Active = active
			return kvutil.Set(ctx, rw, key, cfg)
		}
		if err := kvutil.Ascend(ctx, rw, begin, end, visit); err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("configuration %q: %w", name, os.ErrNotExist)
		}
		return nil
	}
	return kv.WithReadWriter(ctx, c.db, update)
}

// Active returns the currently active configuration. Absence is reported
// with os.ErrNotExist; it is an expected condition, not a failure.
func (c *Configs) Active(ctx context.Context) (*gobs.TradeConfig, error) {
	var active *gobs.TradeConfig
	begin, end := kvutil.PathRange(ConfigsKeyspace)
	find := func(ctx context.Context, r kv.Reader, key string, cfg *gobs.TradeConfig) error {
		if cfg.Active && active == nil {
			active = cfg
		}
		return nil
	}
	if err := kvutil.AscendDB(ctx, c.db, begin, end, find); err != nil {
		return nil, err
	}
	if active == nil {
		return nil, fmt.Errorf("no active configuration: %w", os.ErrNotExist)
	}
	return active, nil
}

// SetRunning toggles the durable running marker for a configuration and
// records it as edit-locked.
func (c *Configs) SetRunning(ctx context.Context, name string, running bool) error {
	cfg, err := c.Get(ctx, name)
	if err != nil {
		return err
	}
	cfg.Running = running
	if err := kvutil.SetDB(ctx, c.db, configKey(name), cfg); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if running {
		c.running = name
	} else if c.running == name {
		c.running = ""
	}
	return nil
}
