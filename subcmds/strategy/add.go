// Copyright (c) 2023 BVK Chaitanya

package strategy

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/bvk/autotrader/api"
	"github.com/bvk/autotrader/cli"
	"github.com/bvk/autotrader/gobs"
	"github.com/bvk/autotrader/subcmds/cmdutil"
)

type Add struct {
	cmdutil.ClientFlags

	name string
}

func (c *Add) Run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("needs one (strategy JSON file) argument")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("could not read strategy file %q: %w", args[0], err)
	}
	cs := new(gobs.CustomStrategy)
	if err := json.Unmarshal(data, cs); err != nil {
		return fmt.Errorf("could not json-unmarshal strategy file: %w", err)
	}
	if len(c.name) != 0 {
		cs.Name = c.name
	}

	req := &api.StrategySaveRequest{Strategy: cs}
	if _, err := cmdutil.Post[api.StrategySaveResponse](ctx, &c.ClientFlags, api.StrategySavePath, req); err != nil {
		return err
	}
	fmt.Printf("saved strategy %q\n", cs.Name)
	return nil
}

func (c *Add) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("add", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.StringVar(&c.name, "name", "", "overrides the strategy name from the file")
	return fset, cli.CmdFunc(c.Run)
}

func (c *Add) Synopsis() string {
	return "Creates or replaces a custom strategy from a JSON file"
}

func (c *Add) CommandHelp() string {
	return `

Command "add" uploads a custom strategy tree defined in a JSON file. A
strategy is a tree of leaf indicators combined with nested children. An
example strategy file is given below:

    {
        "Name": "rsi-dip",
        "Leaves": [
            {"Kind": "RSI", "Period": 14, "TopLevel": "70", "BottomLevel": "30"},
            {"Kind": "BOLLINGER", "Period": 20, "Deviation": "2"}
        ]
    }

`
}
