// Copyright (c) 2023 BVK Chaitanya

package main

import (
	"context"
	"log"
	"os"

	"github.com/bvk/autotrader/cli"
	"github.com/bvk/autotrader/envfile"
	"github.com/bvk/autotrader/subcmds"
	"github.com/bvk/autotrader/subcmds/config"
	"github.com/bvk/autotrader/subcmds/db"
	"github.com/bvk/autotrader/subcmds/strategy"
	"github.com/bvk/autotrader/subcmds/trade"
)

func main() {
	// Users can keep AUTOTRADER_* variables in an env file in their home
	// directory instead of exporting them in every shell.
	if err := envfile.UpdateEnv("autotrader.env"); err != nil {
		log.Fatal(err)
	}

	dbCmds := []cli.Command{
		new(db.Get),
		new(db.Set),
		new(db.Edit),
		new(db.Delete),
		new(db.List),
		new(db.Backup),
		new(db.Restore),
	}

	configCmds := []cli.Command{
		new(config.Add),
		new(config.List),
		new(config.Get),
		new(config.Activate),
	}

	strategyCmds := []cli.Command{
		new(strategy.Add),
		new(strategy.Get),
	}

	tradeCmds := []cli.Command{
		new(trade.Start),
		new(trade.Stop),
		new(trade.Reset),
		new(trade.Status),
	}

	cmds := []cli.Command{
		new(subcmds.Run),
		new(subcmds.Setup),
		new(subcmds.Status),
		new(subcmds.IDGen),
		cli.CommandGroup("trade", "Start/stop trading sessions", tradeCmds...),
		cli.CommandGroup("config", "Manage trade configurations", configCmds...),
		cli.CommandGroup("strategy", "Manage custom strategies", strategyCmds...),
		cli.CommandGroup("db", "View/update database directly", dbCmds...),
	}
	if err := cli.Run(context.Background(), cmds, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
