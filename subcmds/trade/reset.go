// Copyright (c) 2023 BVK Chaitanya

package trade

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/autotrader/api"
	"github.com/bvk/autotrader/cli"
	"github.com/bvk/autotrader/subcmds/cmdutil"
)

type Reset struct {
	cmdutil.ClientFlags

	keep bool
}

func (c *Reset) Run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	req := &api.TradeResetRequest{
		Discard: !c.keep,
	}
	if _, err := cmdutil.Post[api.TradeResetResponse](ctx, &c.ClientFlags, api.TradeResetPath, req); err != nil {
		return err
	}
	if req.Discard {
		fmt.Println("local order data will be discarded when trading starts")
	} else {
		fmt.Println("local order data will be kept when trading starts")
	}
	return nil
}

func (c *Reset) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("reset", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.BoolVar(&c.keep, "keep", false, "when true, clears a previously requested reset")
	return fset, cli.CmdFunc(c.Run)
}

func (c *Reset) Synopsis() string {
	return "Marks local order data for discard on the next start"
}
