// Copyright (c) 2023 BVK Chaitanya

package config

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/autotrader/api"
	"github.com/bvk/autotrader/cli"
	"github.com/bvk/autotrader/subcmds/cmdutil"
)

type Activate struct {
	cmdutil.ClientFlags
}

func (c *Activate) Run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("needs one (config name) argument")
	}
	req := &api.ConfigActivateRequest{Name: args[0]}
	if _, err := cmdutil.Post[api.ConfigActivateResponse](ctx, &c.ClientFlags, api.ConfigActivatePath, req); err != nil {
		return err
	}
	fmt.Printf("configuration %q is now active\n", args[0])
	return nil
}

func (c *Activate) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("activate", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.Run)
}

func (c *Activate) Synopsis() string {
	return "Marks one trade configuration as the active one"
}
