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

type Start struct {
	cmdutil.ClientFlags
}

func (c *Start) Run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	req := &api.TradeStartRequest{}
	resp, err := cmdutil.Post[api.TradeStartResponse](ctx, &c.ClientFlags, api.TradeStartPath, req)
	if err != nil {
		return err
	}
	fmt.Printf("trading started with configuration %q\n", resp.ConfigName)
	return nil
}

func (c *Start) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("start", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.Run)
}

func (c *Start) Synopsis() string {
	return "Starts trading with the active configuration"
}
