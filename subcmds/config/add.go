// Copyright (c) 2023 BVK Chaitanya

package config

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/bvk/autotrader/api"
	"github.com/bvk/autotrader/cli"
	"github.com/bvk/autotrader/gobs"
	"github.com/bvk/autotrader/subcmds/cmdutil"
	"github.com/shopspring/decimal"
)

type Add struct {
	cmdutil.ClientFlags

	name     string
	exchange string

	baseCurrency     string
	tradedCurrencies string

	strategy string

	tickInterval time.Duration
	cycleTimeout time.Duration

	maxCoinAmount       float64
	percentageBuyAmount float64
	minOrderPrice       float64
	buyMaxOpenTime      time.Duration
	maxOpenOrders       int
	maxOpenPositions    int
	buyAnyIndicator     bool

	profitPercentage   float64
	stopLossPercentage float64
	sellMaxOpenTime    time.Duration
	sellAnyIndicator   bool

	activate bool
}

func (c *Add) check() error {
	if len(c.name) == 0 {
		return fmt.Errorf("configuration name cannot be empty")
	}
	if len(c.baseCurrency) == 0 || len(c.tradedCurrencies) == 0 {
		return fmt.Errorf("base and traded currencies cannot be empty")
	}
	if len(c.strategy) == 0 {
		return fmt.Errorf("strategy name cannot be empty")
	}
	if c.maxCoinAmount <= 0 {
		return fmt.Errorf("max-coin-amount cannot be zero or negative")
	}
	if c.percentageBuyAmount <= 0 || c.percentageBuyAmount > 100 {
		return fmt.Errorf("percentage-buy-amount must be in (0, 100]")
	}
	if c.profitPercentage <= 0 {
		return fmt.Errorf("profit-percentage cannot be zero or negative")
	}
	return nil
}

func (c *Add) Run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	if err := c.check(); err != nil {
		return err
	}

	var traded []string
	for _, t := range strings.Split(c.tradedCurrencies, ",") {
		if t = strings.TrimSpace(t); len(t) != 0 {
			traded = append(traded, t)
		}
	}

	req := &api.ConfigSaveRequest{
		Config: &gobs.TradeConfig{
			Name:             c.name,
			ExchangeName:     c.exchange,
			BaseCurrency:     c.baseCurrency,
			TradedCurrencies: traded,
			StrategyName:     c.strategy,
			TickInterval:     c.tickInterval,
			CycleTimeout:     c.cycleTimeout,
			Buy: gobs.BuySettings{
				MaxCoinAmount:             decimal.NewFromFloat(c.maxCoinAmount),
				PercentageBuyAmount:       decimal.NewFromFloat(c.percentageBuyAmount),
				MinOrderPrice:             decimal.NewFromFloat(c.minOrderPrice),
				MaxOpenTime:               c.buyMaxOpenTime,
				MaxOpenOrders:             c.maxOpenOrders,
				MaxOpenPositionsPerMarket: c.maxOpenPositions,
				AnyIndicator:              c.buyAnyIndicator,
			},
			Sell: gobs.SellSettings{
				ProfitPercentage:   decimal.NewFromFloat(c.profitPercentage),
				StopLossPercentage: decimal.NewFromFloat(c.stopLossPercentage),
				MaxOpenTime:        c.sellMaxOpenTime,
				AnyIndicator:       c.sellAnyIndicator,
			},
		},
	}
	if _, err := cmdutil.Post[api.ConfigSaveResponse](ctx, &c.ClientFlags, api.ConfigSavePath, req); err != nil {
		return err
	}

	if c.activate {
		areq := &api.ConfigActivateRequest{Name: c.name}
		if _, err := cmdutil.Post[api.ConfigActivateResponse](ctx, &c.ClientFlags, api.ConfigActivatePath, areq); err != nil {
			return err
		}
	}
	fmt.Printf("saved configuration %q\n", c.name)
	return nil
}

func (c *Add) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("add", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.StringVar(&c.name, "name", "", "name for the configuration")
	fset.StringVar(&c.exchange, "exchange", "paper", "exchange name for the trades")
	fset.StringVar(&c.baseCurrency, "base-currency", "EUR", "currency used to pay for buys")
	fset.StringVar(&c.tradedCurrencies, "traded-currencies", "", "comma-separated currencies to trade")
	fset.StringVar(&c.strategy, "strategy", "", "name of the strategy to evaluate")
	fset.DurationVar(&c.tickInterval, "tick-interval", time.Minute, "candle interval for market history")
	fset.DurationVar(&c.cycleTimeout, "cycle-timeout", 30*time.Second, "pause between trading cycles")
	fset.Float64Var(&c.maxCoinAmount, "max-coin-amount", 0, "largest total notional across open positions")
	fset.Float64Var(&c.percentageBuyAmount, "percentage-buy-amount", 10, "percent of max-coin-amount spent per buy")
	fset.Float64Var(&c.minOrderPrice, "min-order-price", 0, "smallest notional worth placing")
	fset.DurationVar(&c.buyMaxOpenTime, "buy-max-open-time", time.Hour, "max lifetime of an open buy order")
	fset.IntVar(&c.maxOpenOrders, "max-open-orders", 5, "max open buy orders across all markets")
	fset.IntVar(&c.maxOpenPositions, "max-open-positions-per-market", 1, "max open buy orders per market")
	fset.BoolVar(&c.buyAnyIndicator, "buy-any-indicator", false, "buy when any one leaf strategy signals")
	fset.Float64Var(&c.profitPercentage, "profit-percentage", 0, "take-profit margin percent over bought price")
	fset.Float64Var(&c.stopLossPercentage, "stop-loss-percentage", 0, "stop-loss edge percent under bought price")
	fset.DurationVar(&c.sellMaxOpenTime, "sell-max-open-time", time.Hour, "max lifetime of an open sell order")
	fset.BoolVar(&c.sellAnyIndicator, "sell-any-indicator", false, "sell when any one leaf strategy signals")
	fset.BoolVar(&c.activate, "activate", false, "when true, the configuration is also activated")
	return fset, cli.CmdFunc(c.Run)
}

func (c *Add) Synopsis() string {
	return "Creates or replaces a trade configuration"
}
