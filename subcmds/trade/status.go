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

type Status struct {
	cmdutil.ClientFlags
}

func (c *Status) Run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	req := &api.TradeStatusRequest{}
	resp, err := cmdutil.Post[api.TradeStatusResponse](ctx, &c.ClientFlags, api.TradeStatusPath, req)
	if err != nil {
		return err
	}
	if !resp.Running {
		fmt.Println("trading is not running")
		return nil
	}
	fmt.Printf("trading is running with configuration %q\n", resp.ConfigName)
	return nil
}

func (c *Status) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("status", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.Run)
}

func (c *Status) Synopsis() string {
	return "Prints the current trading session status"
}
