// Package advisor turns short rolling price/volume history into buy/sell/hold
// decisions with a suggested position-size fraction.
package advisor

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cryptosim/internal/metrics"
	"cryptosim/internal/risk"
)

// Action is the closed set of signals the advisor can emit.
type Action string

const (
	// Buy commits a fraction of available cash.
	Buy Action = "BUY"
	// Sell liquidates a fraction of the held quantity.
	Sell Action = "SELL"
	// Hold leaves the position untouched.
	Hold Action = "HOLD"
)

// Decision is one immutable entry in the advisor's append-only decision log.
type Decision struct {
	Symbol   string
	Action   Action
	Price    float64
	Fraction float64
	Reason   string
	Ts       time.Time
}

// HistoryLimit is the warm-up window: a symbol needs this many samples before
// it becomes eligible for a non-hold decision.
const HistoryLimit = 14

const (
	stopLossRatio   = 0.95
	takeProfitRatio = 1.10
	oversoldRSI     = 35.0
	overboughtRSI   = 65.0
)

type history struct {
	prices  []float64
	volumes []float64
	spreads []float64
}

// append adds one sample to all three parallel sequences, evicting the oldest
// entries once the cap is exceeded. The sequences always share a length.
func (h *history) append(price, volume, spread float64, limit int) {
	h.prices = append(h.prices, price)
	h.volumes = append(h.volumes, volume)
	h.spreads = append(h.spreads, spread)
	if len(h.prices) > limit {
		h.prices = h.prices[1:]
		h.volumes = h.volumes[1:]
		h.spreads = h.spreads[1:]
	}
}

func (h *history) indicators() Indicators {
	if len(h.prices) == 0 {
		return Indicators{}
	}
	ema, _ := movingAverage(h.prices, emaSpan)
	rsi, _ := relativeStrength(h.prices, rsiPeriod)
	return Indicators{
		EMA:        ema,
		RSI:        rsi,
		Momentum:   h.prices[len(h.prices)-1] - h.prices[0],
		Volatility: stdDev(h.prices),
		AvgVolume:  mean(h.volumes),
		Samples:    len(h.prices),
	}
}

// Advisor owns per-symbol rolling histories, the active risk profile, and the
// decision log. Methods are safe for concurrent use, though the simulation
// serializes ticks anyway.
type Advisor struct {
	mu        sync.Mutex
	log       zerolog.Logger
	profiles  risk.Profiles
	riskName  string
	profile   risk.Profile
	limit     int
	histories map[string]*history
	decisions []Decision
}

// New constructs an advisor using the supplied (already validated) profile
// table and activates the named risk profile.
func New(profiles risk.Profiles, riskName string, log zerolog.Logger) *Advisor {
	a := &Advisor{
		log:       log,
		profiles:  profiles,
		limit:     HistoryLimit,
		histories: make(map[string]*history),
	}
	a.SetRiskProfile(riskName)
	return a
}

// SetRiskProfile switches the active threshold/position-cap pair. An unknown
// name falls back to moderate. Takes effect on the next decision; history is
// never recomputed.
func (a *Advisor) SetRiskProfile(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.riskName, a.profile = a.profiles.Lookup(name)
	a.log.Info().
		Str("risk", a.riskName).
		Float64("threshold", a.profile.Threshold).
		Float64("max_fraction", a.profile.MaxPositionFraction).
		Msg("risk profile set")
}

// RiskProfile returns the active profile name and parameters.
func (a *Advisor) RiskProfile() (string, risk.Profile) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.riskName, a.profile
}

// Decide consumes one sample for symbol and returns the action plus the cash
// fraction (buys) or holding fraction (sells) to commit. A positive
// avgBuyPrice arms the stop-loss and take-profit overrides, which exit at full
// size regardless of indicator state. Every call, including holds, appends to
// the decision log.
func (a *Advisor) Decide(symbol string, price, volume, spread, avgBuyPrice float64) (Action, float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	if price <= 0 || volume <= 0 {
		return a.record(symbol, Hold, price, 0, "invalid price/volume", now)
	}

	h := a.histories[symbol]
	if h == nil {
		h = &history{}
		a.histories[symbol] = h
	}
	h.append(price, volume, spread, a.limit)

	if len(h.prices) < a.limit {
		return a.record(symbol, Hold, price, 0, "insufficient history", now)
	}

	if avgBuyPrice > 0 {
		// Compared as a ratio so the 95%/110% boundaries trigger exactly.
		switch ratio := price / avgBuyPrice; {
		case ratio <= stopLossRatio:
			return a.record(symbol, Sell, price, 1.0,
				fmt.Sprintf("stop-loss: price %.4f under %.0f%% of avg cost %.4f", price, stopLossRatio*100, avgBuyPrice), now)
		case ratio >= takeProfitRatio:
			return a.record(symbol, Sell, price, 1.0,
				fmt.Sprintf("take-profit: price %.4f over %.0f%% of avg cost %.4f", price, takeProfitRatio*100, avgBuyPrice), now)
		}
	}

	ind := h.indicators()
	fraction := math.Min(a.profile.MaxPositionFraction, 1/(1+ind.Volatility*10+1e-9))

	switch {
	case ind.RSI < oversoldRSI && price > ind.EMA:
		return a.record(symbol, Buy, price, fraction,
			fmt.Sprintf("RSI=%.1f (<%.0f), price above EMA", ind.RSI, oversoldRSI), now)
	case ind.RSI > overboughtRSI && price < ind.EMA:
		return a.record(symbol, Sell, price, fraction,
			fmt.Sprintf("RSI=%.1f (>%.0f), price below EMA", ind.RSI, overboughtRSI), now)
	}
	return a.record(symbol, Hold, price, 0, "no strong signal", now)
}

func (a *Advisor) record(symbol string, action Action, price, fraction float64, reason string, ts time.Time) (Action, float64) {
	a.decisions = append(a.decisions, Decision{
		Symbol:   symbol,
		Action:   action,
		Price:    price,
		Fraction: fraction,
		Reason:   reason,
		Ts:       ts,
	})
	metrics.DecisionsTotal.WithLabelValues(symbol, string(action)).Inc()
	evt := a.log.Debug()
	if action != Hold {
		evt = a.log.Info()
	}
	evt.Str("symbol", symbol).Str("action", string(action)).
		Float64("px", price).Float64("fraction", fraction).Msg(reason)
	return action, fraction
}

// Indicators returns the current indicator snapshot for symbol, or false when
// no history exists yet.
func (a *Advisor) Indicators(symbol string) (Indicators, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	h := a.histories[symbol]
	if h == nil || len(h.prices) == 0 {
		return Indicators{}, false
	}
	return h.indicators(), true
}

// Decisions returns a copy of the most recent n decisions; n <= 0 returns the
// full log.
func (a *Advisor) Decisions(n int) []Decision {
	a.mu.Lock()
	defer a.mu.Unlock()
	start := 0
	if n > 0 && len(a.decisions) > n {
		start = len(a.decisions) - n
	}
	out := make([]Decision, len(a.decisions)-start)
	copy(out, a.decisions[start:])
	return out
}

// LastDecision returns the most recent decision recorded for symbol.
func (a *Advisor) LastDecision(symbol string) (Decision, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.decisions) - 1; i >= 0; i-- {
		if a.decisions[i].Symbol == symbol {
			return a.decisions[i], true
		}
	}
	return Decision{}, false
}

// Forget drops the rolling history for symbol. Used when a symbol is removed
// from the tracked set between ticks.
func (a *Advisor) Forget(symbol string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.histories, symbol)
}

// Reset clears all histories and the decision log. The active risk profile is
// kept.
func (a *Advisor) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.histories = make(map[string]*history)
	a.decisions = nil
}
