// Copyright (c) 2023 BVK Chaitanya

package trader

import (
	"context"
	"log/slog"
	"time"

	"github.com/bvk/autotrader/exchange"
	"github.com/bvk/autotrader/gobs"
	"github.com/bvk/autotrader/idgen"
	"github.com/bvk/autotrader/ledger"
	"github.com/bvk/autotrader/strategy"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Buyer reconciles the open buy orders of one trading session against
// the exchange and opens new buy orders on strategy signals.
type Buyer struct {
	cfg *gobs.TradeConfig

	ledger *ledger.Ledger

	lots *LotsAdvisor

	eval *strategy.Evaluator

	idgen *idgen.Generator
}

func NewBuyer(cfg *gobs.TradeConfig, l *ledger.Ledger, lots *LotsAdvisor, eval *strategy.Evaluator, gen *idgen.Generator) *Buyer {
	return &Buyer{cfg: cfg, ledger: l, lots: lots, eval: eval, idgen: gen}
}

// Run performs one buy-phase cycle: reconcile the ledger against exchange
// truth, cancel outdated orders, then decide on new buy orders. A failure
// in one traded currency never prevents the others from being processed.
func (b *Buyer) Run(ctx context.Context, rt *Runtime) error {
	working := b.reconcile(ctx, rt)
	b.detectClosed(ctx, rt, working)
	b.cancelOutdated(ctx, rt)

	for _, traded := range b.cfg.TradedCurrencies {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		if err := b.maybeBuy(ctx, rt, traded); err != nil {
			rt.Notify(ctx, "buying", "could not process %s: %v", traded, err)
		}
	}
	return nil
}

// reconcile fetches exchange-side open buy orders for every configured
// market and adopts any order the ledger does not know about (a manual
// open). Returns the working set of exchange-confirmed open orders.
func (b *Buyer) reconcile(ctx context.Context, rt *Runtime) map[string]*gobs.MarketOrder {
	working := make(map[string]*gobs.MarketOrder)
	for _, traded := range b.cfg.TradedCurrencies {
		orders, err := rt.Exchange.GetOpenOrders(ctx, b.cfg.BaseCurrency, traded)
		if err != nil {
			rt.Notify(ctx, "buying", "could not fetch open orders for %s: %v", traded, err)
			continue
		}
		for _, order := range exchange.FilterSide(orders, "BUY") {
			if b.ledger.ContainsBuyOrder(order.ServerOrderID) {
				working[order.ServerOrderID] = order
				continue
			}
			// Manually placed orders get their open time assigned at
			// detection, not from the exchange.
			order.CreateTime = gobs.RemoteTime{Time: time.Now()}
			order.ExchangeName = b.cfg.ExchangeName
			if err := b.ledger.AddBuyOrder(ctx, rt.Database, order); err != nil {
				rt.Notify(ctx, "buying", "could not adopt manual order %s: %v", order.ServerOrderID, err)
				continue
			}
			working[order.ServerOrderID] = order
			rt.Notify(ctx, "buying", "adopted manually opened buy order %s", exchange.OrderString(order))
		}
	}
	return working
}

// detectClosed handles every order the ledger thought was open but the
// exchange no longer reports: a manual cancel is dropped outright, a fill
// is folded into the traded currency's profit basket.
func (b *Buyer) detectClosed(ctx context.Context, rt *Runtime, working map[string]*gobs.MarketOrder) {
	for _, order := range b.ledger.BuyOrders() {
		if _, ok := working[order.ServerOrderID]; ok {
			continue
		}
		detail, err := rt.Exchange.GetOrder(ctx, b.cfg.BaseCurrency, order.TradedCurrency, order.ServerOrderID)
		if err != nil {
			rt.Notify(ctx, "buying", "could not query order %s: %v", order.ServerOrderID, err)
			continue
		}
		if detail.Canceled {
			if err := b.ledger.RemoveBuyOrder(ctx, rt.Database, order.ServerOrderID); err != nil {
				rt.Notify(ctx, "buying", "could not remove canceled order %s: %v", order.ServerOrderID, err)
				continue
			}
			rt.Notify(ctx, "buying", "buy order %s was manually canceled", exchange.OrderString(order))
			continue
		}
		if err := b.ledger.MoveBuyToProfit(ctx, rt.Database, order); err != nil {
			rt.Notify(ctx, "buying", "could not record closed order %s: %v", order.ServerOrderID, err)
			continue
		}
		slog.Info("buy order closed and added to profit basket", "order", exchange.OrderString(order))
	}
}

// cancelOutdated cancels open buy orders that exceeded the configured
// maximum hold time. The check uses local open timestamps because manual
// orders are stamped at detection time.
func (b *Buyer) cancelOutdated(ctx context.Context, rt *Runtime) {
	if b.cfg.Buy.MaxOpenTime <= 0 {
		return
	}
	for _, order := range b.ledger.BuyOrders() {
		if time.Since(order.CreateTime.Time) <= b.cfg.Buy.MaxOpenTime {
			continue
		}
		if err := rt.Exchange.Cancel(ctx, b.cfg.BaseCurrency, order.TradedCurrency, order.ServerOrderID); err != nil {
			rt.Notify(ctx, "buying", "could not cancel outdated order %s: %v", order.ServerOrderID, err)
			continue
		}
		if err := b.ledger.RemoveBuyOrder(ctx, rt.Database, order.ServerOrderID); err != nil {
			rt.Notify(ctx, "buying", "could not remove outdated order %s: %v", order.ServerOrderID, err)
			continue
		}
		rt.Notify(ctx, "buying", "canceled outdated buy order %s", exchange.OrderString(order))
	}
}

// maybeBuy evaluates the strategy tree for one traded currency and, when
// it signals, sizes and places a new buy order subject to the position,
// order-count, notional and balance gates.
func (b *Buyer) maybeBuy(ctx context.Context, rt *Runtime, traded string) error {
	sig, err := b.eval.Evaluate(ctx, b.cfg, traded, strategy.Buy)
	if err != nil {
		return err
	}
	if !sig.Triggered {
		return nil
	}

	buy := &b.cfg.Buy
	if b.ledger.MarketBuyOrderCount(traded) >= buy.MaxOpenPositionsPerMarket {
		rt.Notify(ctx, "buying", "not buying %s: open position cap %d reached", traded, buy.MaxOpenPositionsPerMarket)
		return nil
	}
	if b.ledger.BuyOrderCount() >= buy.MaxOpenOrders {
		rt.Notify(ctx, "buying", "not buying %s: open order cap %d reached", traded, buy.MaxOpenOrders)
		return nil
	}

	desired := buy.MaxCoinAmount.Mul(buy.PercentageBuyAmount).Div(hundred)
	inTrading := exchange.SumValue(b.ledger.BuyOrders())
	if inTrading.Add(desired).GreaterThan(buy.MaxCoinAmount) {
		if inTrading.Add(buy.MinOrderPrice).GreaterThan(buy.MaxCoinAmount) {
			rt.Notify(ctx, "buying", "not buying %s: %s already in trading of %s allowed", traded, inTrading, buy.MaxCoinAmount)
			return nil
		}
		rt.Notify(ctx, "buying", "clamping %s buy to minimum order price %s", traded, buy.MinOrderPrice)
		desired = buy.MinOrderPrice
	}

	balance, err := rt.Exchange.GetBalance(ctx, b.cfg.BaseCurrency)
	if err != nil {
		return err
	}
	if balance.LessThan(desired) {
		if !balance.GreaterThan(buy.MinOrderPrice) {
			rt.Notify(ctx, "buying", "not buying %s: not enough money (balance %s)", traded, balance)
			return nil
		}
		rt.Notify(ctx, "buying", "clamping %s buy to minimum order price %s (balance %s)", traded, buy.MinOrderPrice, balance)
		desired = buy.MinOrderPrice
	}

	ticker, err := rt.Exchange.GetTicker(ctx, b.cfg.BaseCurrency, traded)
	if err != nil {
		return err
	}
	if ticker.Ask.IsZero() {
		rt.Notify(ctx, "buying", "not buying %s: no ask price", traded)
		return nil
	}
	quantity := desired.Div(ticker.Ask)
	if !quantity.IsPositive() {
		rt.Notify(ctx, "buying", "not buying %s: computed quantity %s", traded, quantity)
		return nil
	}
	quantity = b.lots.Adjust(ctx, rt, exchange.MarketName(b.cfg.BaseCurrency, traded), quantity)
	if quantity.IsZero() {
		return nil
	}

	clientID := b.idgen.NextID()
	order, err := rt.Exchange.Buy(ctx, clientID.String(), b.cfg.BaseCurrency, traded, quantity, ticker.Ask)
	if err != nil {
		b.idgen.RevertID()
		return err
	}
	order.ExchangeName = b.cfg.ExchangeName
	if order.CreateTime.Time.IsZero() {
		order.CreateTime = gobs.RemoteTime{Time: time.Now()}
	}
	if err := b.ledger.AddBuyOrder(ctx, rt.Database, order); err != nil {
		return err
	}
	if err := b.eval.Commit(ctx, sig); err != nil {
		rt.Notify(ctx, "buying", "could not record signal state: %v", err)
	}
	rt.Notify(ctx, "buying", "opened buy order %s", exchange.OrderString(order))
	return nil
}
