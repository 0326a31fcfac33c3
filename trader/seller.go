// Copyright (c) 2023 BVK Chaitanya

package trader

import (
	"context"
	"errors"
	"time"

	"github.com/bvk/autotrader/exchange"
	"github.com/bvk/autotrader/gobs"
	"github.com/bvk/autotrader/idgen"
	"github.com/bvk/autotrader/ledger"
	"github.com/bvk/autotrader/strategy"
	"github.com/shopspring/decimal"
)

// errBasketReset aborts a currency's sell processing for the rest of the
// cycle after its profit basket had to be reset.
var errBasketReset = errors.New("profit basket was reset")

// Seller reconciles open sell orders against the exchange and converts
// bought positions into sell orders on strategy signals, take-profit and
// stop-loss triggers.
type Seller struct {
	cfg *gobs.TradeConfig

	ledger *ledger.Ledger

	lots *LotsAdvisor

	eval *strategy.Evaluator

	idgen *idgen.Generator
}

func NewSeller(cfg *gobs.TradeConfig, l *ledger.Ledger, lots *LotsAdvisor, eval *strategy.Evaluator, gen *idgen.Generator) *Seller {
	return &Seller{cfg: cfg, ledger: l, lots: lots, eval: eval, idgen: gen}
}

// Run performs the sell-phase cycle: reconcile, cancel outdated, then
// strategy-signal and take-profit exits per traded currency.
func (s *Seller) Run(ctx context.Context, rt *Runtime) error {
	working := s.reconcile(ctx, rt)
	s.detectClosed(ctx, rt, working)
	s.cancelOutdated(ctx, rt)

	for _, traded := range s.cfg.TradedCurrencies {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		if err := s.strategyExit(ctx, rt, traded); err != nil && !errors.Is(err, errBasketReset) {
			rt.Notify(ctx, "selling", "could not process %s: %v", traded, err)
		}
	}
	for _, traded := range s.cfg.TradedCurrencies {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		if err := s.takeProfit(ctx, rt, traded); err != nil && !errors.Is(err, errBasketReset) {
			rt.Notify(ctx, "selling", "could not take profit on %s: %v", traded, err)
		}
	}
	return nil
}

// RunStopLoss performs the stop-loss phase over every traded currency's
// profit basket.
func (s *Seller) RunStopLoss(ctx context.Context, rt *Runtime) error {
	for _, traded := range s.cfg.TradedCurrencies {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		if err := s.stopLoss(ctx, rt, traded); err != nil && !errors.Is(err, errBasketReset) {
			rt.Notify(ctx, "selling", "could not check stop loss on %s: %v", traded, err)
		}
	}
	return nil
}

// reconcile collects the exchange-side open sell orders. A manually
// placed sell order is never adopted because the engine cannot know which
// buy position it liquidates; it is reported and ignored.
func (s *Seller) reconcile(ctx context.Context, rt *Runtime) map[string]*gobs.MarketOrder {
	working := make(map[string]*gobs.MarketOrder)
	for _, traded := range s.cfg.TradedCurrencies {
		orders, err := rt.Exchange.GetOpenOrders(ctx, s.cfg.BaseCurrency, traded)
		if err != nil {
			rt.Notify(ctx, "selling", "could not fetch open orders for %s: %v", traded, err)
			continue
		}
		for _, order := range exchange.FilterSide(orders, "SELL") {
			if s.ledger.ContainsSellOrder(order.ServerOrderID) {
				working[order.ServerOrderID] = order
				continue
			}
			rt.Notify(ctx, "selling", "ignoring manually opened sell order %s", exchange.OrderString(order))
		}
	}
	return working
}

// detectClosed resolves every sell order the exchange no longer reports
// as open. A canceled sell folds its matched buy order back into the
// profit basket; a filled sell realizes the profit and removes both
// sides.
func (s *Seller) detectClosed(ctx context.Context, rt *Runtime, working map[string]*gobs.MarketOrder) {
	for _, order := range s.ledger.SellOrders() {
		if _, ok := working[order.ServerOrderID]; ok {
			continue
		}
		detail, err := rt.Exchange.GetOrder(ctx, s.cfg.BaseCurrency, order.TradedCurrency, order.ServerOrderID)
		if err != nil {
			rt.Notify(ctx, "selling", "could not query order %s: %v", order.ServerOrderID, err)
			continue
		}
		if detail.Canceled {
			s.resolveCanceled(ctx, rt, order, "manually canceled")
			continue
		}
		s.resolveClosed(ctx, rt, order)
	}
}

func (s *Seller) resolveCanceled(ctx context.Context, rt *Runtime, order *gobs.MarketOrder, reason string) {
	if m, ok := s.ledger.Matching(order.ServerOrderID); ok {
		if err := s.ledger.AddProfitOrder(ctx, rt.Database, m.BuyOrder); err != nil {
			rt.Notify(ctx, "selling", "could not restore position for canceled sell %s: %v", order.ServerOrderID, err)
			return
		}
		if err := s.ledger.RemoveMatching(ctx, rt.Database, order.ServerOrderID); err != nil {
			rt.Notify(ctx, "selling", "could not remove matching for %s: %v", order.ServerOrderID, err)
			return
		}
	}
	if err := s.ledger.RemoveSellOrder(ctx, rt.Database, order.ServerOrderID); err != nil {
		rt.Notify(ctx, "selling", "could not remove canceled sell %s: %v", order.ServerOrderID, err)
		return
	}
	rt.Notify(ctx, "selling", "sell order %s was %s; position restored", exchange.OrderString(order), reason)
}

func (s *Seller) resolveClosed(ctx context.Context, rt *Runtime, order *gobs.MarketOrder) {
	if _, ok := s.ledger.Matching(order.ServerOrderID); ok {
		if err := s.ledger.RemoveMatching(ctx, rt.Database, order.ServerOrderID); err != nil {
			rt.Notify(ctx, "selling", "could not remove matching for %s: %v", order.ServerOrderID, err)
			return
		}
	}
	if err := s.ledger.RemoveSellOrder(ctx, rt.Database, order.ServerOrderID); err != nil {
		rt.Notify(ctx, "selling", "could not remove closed sell %s: %v", order.ServerOrderID, err)
		return
	}
	rt.Notify(ctx, "selling", "sell order %s closed; profit realized", exchange.OrderString(order))
}

// cancelOutdated cancels sell orders open longer than the configured hold
// time and restores their matched buy positions.
func (s *Seller) cancelOutdated(ctx context.Context, rt *Runtime) {
	if s.cfg.Sell.MaxOpenTime <= 0 {
		return
	}
	for _, order := range s.ledger.SellOrders() {
		if time.Since(order.CreateTime.Time) <= s.cfg.Sell.MaxOpenTime {
			continue
		}
		if err := rt.Exchange.Cancel(ctx, s.cfg.BaseCurrency, order.TradedCurrency, order.ServerOrderID); err != nil {
			rt.Notify(ctx, "selling", "could not cancel outdated order %s: %v", order.ServerOrderID, err)
			continue
		}
		s.resolveCanceled(ctx, rt, order, "canceled as outdated")
	}
}

// strategyExit sells the traded currency's bought positions when the
// strategy tree signals a sell.
func (s *Seller) strategyExit(ctx context.Context, rt *Runtime, traded string) error {
	basket, ok := s.ledger.ProfitBasket(traded)
	if !ok {
		return nil
	}
	sig, err := s.eval.Evaluate(ctx, s.cfg, traded, strategy.Sell)
	if err != nil {
		return err
	}
	if !sig.Triggered {
		return nil
	}

	placed := false
	for _, order := range basket.Orders() {
		if err := s.placeSell(ctx, rt, basket, order, "strategy signal"); err != nil {
			return err
		}
		placed = true
	}
	if placed {
		if err := s.eval.Commit(ctx, sig); err != nil {
			rt.Notify(ctx, "selling", "could not record signal state: %v", err)
		}
	}
	return nil
}

// stopLoss sells any position whose price fell to its stop-loss edge.
func (s *Seller) stopLoss(ctx context.Context, rt *Runtime, traded string) error {
	basket, ok := s.ledger.ProfitBasket(traded)
	if !ok {
		return nil
	}
	ticker, err := rt.Exchange.GetTicker(ctx, s.cfg.BaseCurrency, traded)
	if err != nil {
		return err
	}
	pct := s.cfg.Sell.StopLossPercentage
	for _, order := range basket.Orders() {
		edge := order.Price.Mul(decimal.NewFromInt(1).Sub(pct.Div(hundred)))
		if ticker.Ask.GreaterThan(edge) {
			continue
		}
		rt.Notify(ctx, "selling", "stop loss hit for %s: ask %s <= edge %s", traded, ticker.Ask, edge)
		if err := s.placeSell(ctx, rt, basket, order, "stop loss"); err != nil {
			return err
		}
	}
	return nil
}

// takeProfit sells any position whose target price is reached.
func (s *Seller) takeProfit(ctx context.Context, rt *Runtime, traded string) error {
	basket, ok := s.ledger.ProfitBasket(traded)
	if !ok {
		return nil
	}
	ticker, err := rt.Exchange.GetTicker(ctx, s.cfg.BaseCurrency, traded)
	if err != nil {
		return err
	}
	pct := s.cfg.Sell.ProfitPercentage
	for _, order := range basket.Orders() {
		target := order.Price.Mul(decimal.NewFromInt(1).Add(pct.Div(hundred)))
		if ticker.Bid.LessThan(target) {
			continue
		}
		rt.Notify(ctx, "selling", "take profit hit for %s: bid %s >= target %s", traded, ticker.Bid, target)
		if err := s.placeSell(ctx, rt, basket, order, "take profit"); err != nil {
			return err
		}
	}
	return nil
}

// sellQuantity decides how much of a bought position can actually be
// sold. The exchange balance is authoritative over the locally recorded
// buy quantity: a single under-covered position is partially liquidated,
// while a multi-order basket that the balance cannot cover is an
// inconsistent state and is reset outright.
func (s *Seller) sellQuantity(ctx context.Context, rt *Runtime, basket *ledger.ProfitBasket, order *gobs.MarketOrder) (decimal.Decimal, error) {
	balance, err := rt.Exchange.GetBalance(ctx, order.TradedCurrency)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if balance.GreaterThanOrEqual(order.Size) {
		return order.Size, nil
	}
	if basket.Len() > 1 {
		rt.Notify(ctx, "selling", "balance %s %s cannot cover position basket (%d orders); resetting basket",
			balance, order.TradedCurrency, basket.Len())
		if err := s.ledger.ResetBasket(ctx, rt.Database, order.TradedCurrency); err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.Decimal{}, errBasketReset
	}
	rt.Notify(ctx, "selling", "balance %s %s is below bought quantity %s; selling available balance",
		balance, order.TradedCurrency, order.Size)
	return balance, nil
}

func (s *Seller) placeSell(ctx context.Context, rt *Runtime, basket *ledger.ProfitBasket, order *gobs.MarketOrder, reason string) error {
	quantity, err := s.sellQuantity(ctx, rt, basket, order)
	if err != nil {
		return err
	}
	quantity = s.lots.Adjust(ctx, rt, exchange.MarketName(s.cfg.BaseCurrency, order.TradedCurrency), quantity)
	if quantity.IsZero() {
		return nil
	}

	ticker, err := rt.Exchange.GetTicker(ctx, s.cfg.BaseCurrency, order.TradedCurrency)
	if err != nil {
		return err
	}

	clientID := s.idgen.NextID()
	sell, err := rt.Exchange.Sell(ctx, clientID.String(), s.cfg.BaseCurrency, order.TradedCurrency, quantity, ticker.Bid)
	if err != nil {
		s.idgen.RevertID()
		return err
	}
	sell.ExchangeName = s.cfg.ExchangeName
	if sell.CreateTime.Time.IsZero() {
		sell.CreateTime = gobs.RemoteTime{Time: time.Now()}
	}
	if err := s.ledger.AddSellOrder(ctx, rt.Database, sell); err != nil {
		return err
	}
	m := &gobs.OrderMatching{SellServerID: sell.ServerOrderID, BuyOrder: order}
	if err := s.ledger.AddMatching(ctx, rt.Database, m); err != nil {
		return err
	}
	if err := s.ledger.RemoveProfitOrder(ctx, rt.Database, order.TradedCurrency, order.ServerOrderID); err != nil {
		return err
	}
	rt.Notify(ctx, "selling", "opened sell order %s (%s)", exchange.OrderString(sell), reason)
	return nil
}
