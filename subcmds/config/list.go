// Copyright (c) 2023 BVK Chaitanya

package config

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/bvk/autotrader/api"
	"github.com/bvk/autotrader/cli"
	"github.com/bvk/autotrader/subcmds/cmdutil"
)

type List struct {
	cmdutil.ClientFlags
}

func (c *List) Run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	req := &api.ConfigListRequest{}
	resp, err := cmdutil.Post[api.ConfigListResponse](ctx, &c.ClientFlags, api.ConfigListPath, req)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tEXCHANGE\tMARKETS\tSTRATEGY\tACTIVE\tRUNNING")
	for _, cfg := range resp.Configs {
		var markets []string
		for _, t := range cfg.TradedCurrencies {
			markets = append(markets, t+"-"+cfg.BaseCurrency)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%t\n",
			cfg.Name, cfg.ExchangeName, strings.Join(markets, ","), cfg.StrategyName, cfg.Active, cfg.Running)
	}
	return tw.Flush()
}

func (c *List) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("list", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.Run)
}

func (c *List) Synopsis() string {
	return "Prints all trade configurations"
}
