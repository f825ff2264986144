// Package portfolio keeps the simulated cash ledger, per-symbol holdings, and
// the append-only trade log.
package portfolio

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cryptosim/internal/exchange"
	"cryptosim/internal/metrics"
)

const epsilon = 1e-9

// Side labels a trade record.
type Side string

const (
	// Buy spends cash for quantity.
	Buy Side = "BUY"
	// Sell converts quantity back to cash.
	Sell Side = "SELL"
)

// Holding tracks one symbol's open position. The average buy price is a
// quantity-weighted running mean, updated on buys and never on sells.
type Holding struct {
	Qty         float64
	AvgBuyPrice float64
}

// Trade is one immutable entry in the append-only trade log. Notional carries
// the cost for buys and the revenue for sells.
type Trade struct {
	Side         Side      `json:"side"`
	Symbol       string    `json:"symbol"`
	Price        float64   `json:"price"`
	Qty          float64   `json:"qty"`
	Notional     float64   `json:"notional"`
	BalanceAfter float64   `json:"balance_after"`
	Ts           time.Time `json:"ts"`
}

// TradeRecorder receives every executed trade for audit purposes.
type TradeRecorder interface {
	Record(Trade)
}

// HoldingDetail is a mark-to-market view of one position.
type HoldingDetail struct {
	Symbol        string
	Qty           float64
	AvgBuyPrice   float64
	MarketValue   float64
	UnrealizedPnL float64
}

// Portfolio executes simulated buys and sells against exchange quantization
// and notional rules. Rejected trades leave state untouched and the cash
// balance never goes negative.
type Portfolio struct {
	mu             sync.Mutex
	log            zerolog.Logger
	rules          *exchange.RuleBook
	recorder       TradeRecorder
	initialBalance float64
	balance        float64
	holdings       map[string]Holding
	trades         []Trade
}

// New constructs a portfolio with the given starting cash and rule book.
func New(initialBalance float64, rules *exchange.RuleBook, log zerolog.Logger) *Portfolio {
	return &Portfolio{
		log:            log,
		rules:          rules,
		initialBalance: initialBalance,
		balance:        initialBalance,
		holdings:       make(map[string]Holding),
	}
}

// SetRecorder attaches an audit sink that sees every executed trade.
func (p *Portfolio) SetRecorder(r TradeRecorder) {
	p.mu.Lock()
	p.recorder = r
	p.mu.Unlock()
}

// Buy commits fraction of the available cash to symbol at price. Returns false
// without mutating state when the quantized order misses the notional minimum,
// rounds to nothing, or would overdraw the balance.
func (p *Portfolio) Buy(symbol string, price, fraction float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	quantizedPrice := p.rules.QuantizePrice(symbol, price)
	var rawQty float64
	if quantizedPrice > 0 {
		rawQty = p.balance * fraction / quantizedPrice
	}
	qty := p.rules.QuantizeQuantity(symbol, rawQty)
	if minQty := p.rules.Rules(symbol).AmountMin; rawQty < minQty && qty == minQty {
		p.log.Debug().Str("symbol", symbol).Float64("raw_qty", rawQty).Float64("qty", qty).
			Msg("quantity floored up to exchange minimum")
	}
	cost := quantizedPrice * qty

	if !p.rules.MeetsMinNotional(symbol, quantizedPrice, qty) {
		p.reject(symbol, Buy, "below min notional", cost)
		return false
	}
	if qty <= 0 || cost > p.balance {
		p.reject(symbol, Buy, "insufficient funds", cost)
		return false
	}

	held := p.holdings[symbol]
	newQty := held.Qty + qty
	newAvg := (held.AvgBuyPrice*held.Qty + quantizedPrice*qty) / newQty
	p.holdings[symbol] = Holding{Qty: newQty, AvgBuyPrice: newAvg}
	p.balance -= cost
	p.append(Trade{Side: Buy, Symbol: symbol, Price: quantizedPrice, Qty: qty,
		Notional: cost, BalanceAfter: p.balance, Ts: time.Now()})
	return true
}

// Sell liquidates up to requestedQty of the held position at price. The sale
// quantity is min(held, requested) after quantization. A position left below
// 1e-9 is removed outright, forgetting its average cost.
func (p *Portfolio) Sell(symbol string, price, requestedQty float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	held := p.holdings[symbol]
	if held.Qty <= 0 || requestedQty <= 0 {
		p.reject(symbol, Sell, "nothing to sell", 0)
		return false
	}

	quantizedPrice := p.rules.QuantizePrice(symbol, price)
	qty := p.rules.QuantizeQuantity(symbol, math.Min(held.Qty, requestedQty))
	if qty <= 0 {
		p.reject(symbol, Sell, "zero quantized quantity", 0)
		return false
	}
	revenue := quantizedPrice * qty
	if !p.rules.MeetsMinNotional(symbol, quantizedPrice, qty) {
		p.reject(symbol, Sell, "below min notional", revenue)
		return false
	}

	remaining := held.Qty - qty
	if remaining < epsilon {
		delete(p.holdings, symbol)
	} else {
		p.holdings[symbol] = Holding{Qty: remaining, AvgBuyPrice: held.AvgBuyPrice}
	}
	p.balance += revenue
	p.append(Trade{Side: Sell, Symbol: symbol, Price: quantizedPrice, Qty: qty,
		Notional: revenue, BalanceAfter: p.balance, Ts: time.Now()})
	return true
}

func (p *Portfolio) append(trade Trade) {
	p.trades = append(p.trades, trade)
	metrics.TradesTotal.WithLabelValues(trade.Symbol, string(trade.Side)).Inc()
	if p.recorder != nil {
		p.recorder.Record(trade)
	}
	p.log.Info().Str("symbol", trade.Symbol).Str("side", string(trade.Side)).
		Float64("qty", trade.Qty).Float64("px", trade.Price).
		Float64("balance", trade.BalanceAfter).Msg("simulated trade")
}

func (p *Portfolio) reject(symbol string, side Side, reason string, notional float64) {
	metrics.TradeRejectsTotal.WithLabelValues(symbol, reason).Inc()
	p.log.Warn().Str("symbol", symbol).Str("side", string(side)).
		Float64("notional", notional).Msg("trade rejected: " + reason)
}

// HoldingsDetail returns mark-to-market views of every open position, sorted
// by symbol. Symbols missing from prices are valued at zero.
func (p *Portfolio) HoldingsDetail(prices map[string]float64) []HoldingDetail {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]HoldingDetail, 0, len(p.holdings))
	for sym, held := range p.holdings {
		if held.Qty <= 0 {
			continue
		}
		price := prices[sym]
		var pnl float64
		if held.AvgBuyPrice > 0 {
			pnl = (price - held.AvgBuyPrice) * held.Qty
		}
		out = append(out, HoldingDetail{
			Symbol:        sym,
			Qty:           held.Qty,
			AvgBuyPrice:   held.AvgBuyPrice,
			MarketValue:   held.Qty * price,
			UnrealizedPnL: pnl,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// ProfitLoss returns realized plus unrealized P/L against the supplied prices.
func (p *Portfolio) ProfitLoss(prices map[string]float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := p.balance
	for sym, held := range p.holdings {
		total += prices[sym] * held.Qty
	}
	return total - p.initialBalance
}

// Balance returns the current cash balance.
func (p *Portfolio) Balance() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance
}

// InitialBalance returns the starting cash fixed at construction.
func (p *Portfolio) InitialBalance() float64 { return p.initialBalance }

// Holding returns the open position for symbol, if any.
func (p *Portfolio) Holding(symbol string) (Holding, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	held, ok := p.holdings[symbol]
	return held, ok
}

// RemoveHolding discards the position for symbol without liquidating it. Used
// when a symbol is dropped from the tracked set between ticks.
func (p *Portfolio) RemoveHolding(symbol string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.holdings, symbol)
}

// Trades returns a copy of the full trade log in append order.
func (p *Portfolio) Trades() []Trade {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Trade, len(p.trades))
	copy(out, p.trades)
	return out
}

// RecentTrades returns a copy of the most recent n trades; n <= 0 returns the
// full log.
func (p *Portfolio) RecentTrades(n int) []Trade {
	p.mu.Lock()
	defer p.mu.Unlock()
	start := 0
	if n > 0 && len(p.trades) > n {
		start = len(p.trades) - n
	}
	out := make([]Trade, len(p.trades)-start)
	copy(out, p.trades[start:])
	return out
}

// Reset restores cash to the initial balance and clears holdings and the trade
// log. The advisor's history has a separate lifecycle and is not touched.
func (p *Portfolio) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balance = p.initialBalance
	p.holdings = make(map[string]Holding)
	p.trades = nil
	p.log.Info().Msg("portfolio reset")
}
