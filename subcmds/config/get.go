// Copyright (c) 2023 BVK Chaitanya

package config

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/bvk/autotrader/api"
	"github.com/bvk/autotrader/cli"
	"github.com/bvk/autotrader/subcmds/cmdutil"
)

type Get struct {
	cmdutil.ClientFlags
}

func (c *Get) Run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("needs one (config name) argument")
	}
	req := &api.ConfigGetRequest{Name: args[0]}
	resp, err := cmdutil.Post[api.ConfigGetResponse](ctx, &c.ClientFlags, api.ConfigGetPath, req)
	if err != nil {
		return err
	}
	jsdata, _ := json.MarshalIndent(resp.Config, "", "  ")
	fmt.Printf("%s\n", jsdata)
	return nil
}

func (c *Get) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("get", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.Run)
}

func (c *Get) Synopsis() string {
	return "Prints one trade configuration"
}
