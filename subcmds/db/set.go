// Copyright (c) 2023 BVK Chaitanya

package db

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"github.com/bvk/autotrader/cli"
	"github.com/bvk/autotrader/subcmds/cmdutil"
)

type Set struct {
	cmdutil.DBFlags

	valueType string
}

func (c *Set) Run(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("needs two (key, value) arguments")
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	tx, err := db.NewTransaction(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if len(c.valueType) == 0 {
		if err := tx.Set(ctx, args[0], strings.NewReader(args[1])); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}

	// Value argument is JSON; it is gob-encoded with the selected type.
	value, err := TypeNameValue(c.valueType)
	if err != nil {
		return fmt.Errorf("invalid type name %q: %w", c.valueType, err)
	}
	if err := json.Unmarshal([]byte(args[1]), value); err != nil {
		return fmt.Errorf("could not json-unmarshal value argument: %w", err)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return fmt.Errorf("could not gob-encode value: %w", err)
	}
	if err := tx.Set(ctx, args[0], &buf); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (c *Set) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("set", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	fset.StringVar(&c.valueType, "value-type", "", "when non-empty value argument is JSON for the selected type")
	return fset, cli.CmdFunc(c.Run)
}

func (c *Set) Synopsis() string {
	return "Updates the value for a key in the database"
}
