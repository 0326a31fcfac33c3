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

type Stop struct {
	cmdutil.ClientFlags
}

func (c *Stop) Run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	req := &api.TradeStopRequest{}
	if _, err := cmdutil.Post[api.TradeStopResponse](ctx, &c.ClientFlags, api.TradeStopPath, req); err != nil {
		return err
	}
	fmt.Println("trading stopped")
	return nil
}

func (c *Stop) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("stop", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.Run)
}

func (c *Stop) Synopsis() string {
	return "Stops the running trading session"
}
