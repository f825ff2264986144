// Package engine drives the per-tick decide/execute loop over one advisor and
// portfolio pair.
package engine

import (
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"cryptosim/internal/advisor"
	"cryptosim/internal/market"
	"cryptosim/internal/metrics"
	"cryptosim/internal/portfolio"
)

// Session owns one simulation epoch. All tick processing and tracked-symbol
// mutation is serialized behind a single mutex, so a configuration change
// never races an in-flight decision.
type Session struct {
	mu         sync.Mutex
	log        zerolog.Logger
	advisor    *advisor.Advisor
	portfolio  *portfolio.Portfolio
	symbols    []string
	lastPrices map[string]float64
}

// NewSession wires an advisor and portfolio to a tracked symbol set.
func NewSession(adv *advisor.Advisor, pf *portfolio.Portfolio, symbols []string, log zerolog.Logger) *Session {
	s := &Session{
		log:        log,
		advisor:    adv,
		portfolio:  pf,
		lastPrices: make(map[string]float64),
	}
	s.setSymbols(symbols)
	return s
}

func (s *Session) setSymbols(symbols []string) {
	unique := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		unique[sym] = struct{}{}
	}
	s.symbols = s.symbols[:0]
	for sym := range unique {
		s.symbols = append(s.symbols, sym)
	}
	sort.Strings(s.symbols)
}

// Symbols returns a copy of the tracked symbol set.
func (s *Session) Symbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// AddSymbol starts tracking a symbol. No-op if already tracked.
func (s *Session) AddSymbol(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setSymbols(append(s.symbols, symbol))
}

// RemoveSymbol stops tracking a symbol and discards its rolling history and
// holding without liquidation.
func (s *Session) RemoveSymbol(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.symbols[:0]
	for _, sym := range s.symbols {
		if sym != symbol {
			kept = append(kept, sym)
		}
	}
	s.symbols = kept
	s.advisor.Forget(symbol)
	s.portfolio.RemoveHolding(symbol)
	delete(s.lastPrices, symbol)
}

// SetRiskProfile switches the advisor's active risk profile.
func (s *Session) SetRiskProfile(name string) {
	s.advisor.SetRiskProfile(name)
}

// ProcessTick runs one decide/execute pass over the snapshot. Tracked symbols
// missing from the snapshot are skipped; a partial tick is not an error.
func (s *Session) ProcessTick(snap market.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sym := range s.symbols {
		sample, ok := snap[sym]
		if !ok {
			continue
		}
		s.lastPrices[sym] = sample.Price

		var avgBuy float64
		if held, ok := s.portfolio.Holding(sym); ok {
			avgBuy = held.AvgBuyPrice
		}
		action, fraction := s.advisor.Decide(sym, sample.Price, sample.Volume, sample.Spread(), avgBuy)

		switch {
		case action == advisor.Buy && fraction > 0:
			s.portfolio.Buy(sym, sample.Price, fraction)
		case action == advisor.Sell && fraction > 0:
			if held, ok := s.portfolio.Holding(sym); ok && held.Qty > 0 {
				s.portfolio.Sell(sym, sample.Price, held.Qty*fraction)
			}
		}
	}
}

// SellAll liquidates every open position at the snapshot's prices and returns
// the number of positions sold. Positions without a current price are left
// untouched.
func (s *Session) SellAll(snap market.Snapshot) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	sold := 0
	for _, detail := range s.portfolio.HoldingsDetail(market.Prices(snap)) {
		sample, ok := snap[detail.Symbol]
		if !ok {
			continue
		}
		if s.portfolio.Sell(detail.Symbol, sample.Price, detail.Qty) {
			sold++
		}
	}
	if sold > 0 {
		s.log.Info().Int("positions", sold).Msg("liquidated holdings")
	}
	return sold
}

// Reset starts a fresh simulation epoch: the portfolio returns to its initial
// balance and the advisor's histories and decision log are cleared.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolio.Reset()
	s.advisor.Reset()
	s.lastPrices = make(map[string]float64)
	metrics.SessionResets.Inc()
}

// MarkPrices returns the last seen price per tracked symbol.
func (s *Session) MarkPrices() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.lastPrices))
	for sym, px := range s.lastPrices {
		out[sym] = px
	}
	return out
}

// Balance reports the portfolio's current cash balance.
func (s *Session) Balance() float64 { return s.portfolio.Balance() }

// ProfitLoss reports cumulative P/L marked at the last seen prices.
func (s *Session) ProfitLoss() float64 {
	return s.portfolio.ProfitLoss(s.MarkPrices())
}

// Holdings reports mark-to-market position details at the last seen prices.
func (s *Session) Holdings() []portfolio.HoldingDetail {
	return s.portfolio.HoldingsDetail(s.MarkPrices())
}

// RecentTrades returns the most recent n trade records.
func (s *Session) RecentTrades(n int) []portfolio.Trade {
	return s.portfolio.RecentTrades(n)
}

// Decisions returns the most recent n advisor decisions across all symbols.
func (s *Session) Decisions(n int) []advisor.Decision {
	return s.advisor.Decisions(n)
}

// Indicators returns the current indicator snapshot for symbol.
func (s *Session) Indicators(symbol string) (advisor.Indicators, bool) {
	return s.advisor.Indicators(symbol)
}

// LastDecision returns the most recent decision for symbol.
func (s *Session) LastDecision(symbol string) (advisor.Decision, bool) {
	return s.advisor.LastDecision(symbol)
}
