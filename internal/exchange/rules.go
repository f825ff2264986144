// Package exchange models static exchange trading rules and order quantization.
package exchange

import (
	"fmt"
	"math"
)

// RuleSet holds the exchange constraints applied to one symbol.
type RuleSet struct {
	PricePrecision  int     `yaml:"price_precision"`
	AmountPrecision int     `yaml:"amount_precision"`
	AmountMin       float64 `yaml:"amount_min"`
	NotionalMin     float64 `yaml:"notional_min"`
}

// Validate rejects rule sets the simulator cannot quantize against.
func (r RuleSet) Validate() error {
	if r.PricePrecision < 0 || r.AmountPrecision < 0 {
		return fmt.Errorf("precision must be non-negative")
	}
	if r.AmountMin < 0 {
		return fmt.Errorf("amount_min must be non-negative")
	}
	if r.NotionalMin < 0 {
		return fmt.Errorf("notional_min must be non-negative")
	}
	return nil
}

// DefaultRules is the fallback applied to symbols missing from the table.
func DefaultRules() RuleSet {
	return RuleSet{PricePrecision: 4, AmountPrecision: 6, AmountMin: 0.00001, NotionalMin: 10.0}
}

// DefaultTable returns the built-in rule table for the stock symbol set.
func DefaultTable() map[string]RuleSet {
	return map[string]RuleSet{
		"BTC/USDT": {PricePrecision: 2, AmountPrecision: 6, AmountMin: 0.00001, NotionalMin: 10.0},
		"ETH/USDT": {PricePrecision: 2, AmountPrecision: 5, AmountMin: 0.0001, NotionalMin: 10.0},
		"BNB/USDT": {PricePrecision: 2, AmountPrecision: 3, AmountMin: 0.01, NotionalMin: 10.0},
		"ADA/USDT": {PricePrecision: 4, AmountPrecision: 0, AmountMin: 1.0, NotionalMin: 10.0},
		"SOL/USDT": {PricePrecision: 2, AmountPrecision: 3, AmountMin: 0.01, NotionalMin: 10.0},
	}
}

// RuleBook answers quantization and notional questions from a static per-symbol
// table. It is immutable once built; all methods are pure.
type RuleBook struct {
	rules    map[string]RuleSet
	fallback RuleSet
}

// NewRuleBook copies the supplied table into an immutable rule book. Symbols
// absent from the table resolve to DefaultRules.
func NewRuleBook(rules map[string]RuleSet) *RuleBook {
	table := make(map[string]RuleSet, len(rules))
	for sym, rs := range rules {
		table[sym] = rs
	}
	return &RuleBook{rules: table, fallback: DefaultRules()}
}

// Rules returns the rule set for symbol, or the fixed default for unknown symbols.
func (b *RuleBook) Rules(symbol string) RuleSet {
	if rs, ok := b.rules[symbol]; ok {
		return rs
	}
	return b.fallback
}

// QuantizePrice rounds price to the symbol's price precision.
// Rounding is half-away-from-zero.
func (b *RuleBook) QuantizePrice(symbol string, price float64) float64 {
	return roundTo(price, b.Rules(symbol).PricePrecision)
}

// QuantizeQuantity rounds qty to the symbol's amount precision and floors the
// result UP to the exchange minimum when the rounded value is smaller. Small
// nonzero quantities are therefore inflated rather than rejected; callers must
// still check the notional minimum independently.
func (b *RuleBook) QuantizeQuantity(symbol string, qty float64) float64 {
	rules := b.Rules(symbol)
	quantized := roundTo(qty, rules.AmountPrecision)
	if quantized < rules.AmountMin {
		return rules.AmountMin
	}
	return quantized
}

// MeetsMinNotional reports whether price*qty clears the symbol's minimum trade value.
func (b *RuleBook) MeetsMinNotional(symbol string, price, qty float64) bool {
	return price*qty >= b.Rules(symbol).NotionalMin
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
