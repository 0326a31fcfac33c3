// Copyright (c) 2023 BVK Chaitanya

package strategy

import (
	"context"
	"fmt"
	"path"

	"github.com/bvk/autotrader/gobs"
	"github.com/bvk/autotrader/kvutil"
	"github.com/bvkgo/kv"
)

const DefaultKeyspace = "/strategies"

func settingsKey(name string) string {
	return path.Join(DefaultKeyspace, name)
}

// LoadSettings reads a named custom strategy tree from the store.
// Unknown strategy names are a configuration error; the trading session
// must not start without its strategy.
func LoadSettings(ctx context.Context, db kv.Database, name string) (*gobs.CustomStrategy, error) {
	cs, err := kvutil.GetDB[gobs.CustomStrategy](ctx, db, settingsKey(name))
	if err != nil {
		return nil, fmt.Errorf("could not load strategy %q: %w", name, err)
	}
	return cs, nil
}

// SaveSettings writes a custom strategy tree back to the store. The
// evaluator calls this after leaf crossing state changes.
func SaveSettings(ctx context.Context, db kv.Database, cs *gobs.CustomStrategy) error {
	if len(cs.Name) == 0 {
		return fmt.Errorf("strategy name cannot be empty")
	}
	return kvutil.SetDB(ctx, db, settingsKey(cs.Name), cs)
}

// Check validates the whole tree.
func Check(cs *gobs.CustomStrategy) error {
	if len(cs.Leaves) == 0 && len(cs.Children) == 0 {
		return fmt.Errorf("strategy %q has no leaves", cs.Name)
	}
	for _, leaf := range cs.Leaves {
		if err := CheckLeaf(leaf); err != nil {
			return fmt.Errorf("strategy %q: %w", cs.Name, err)
		}
	}
	for _, child := range cs.Children {
		if err := Check(child); err != nil {
			return err
		}
	}
	return nil
}
