package exchange

import (
	"math"
	"testing"
)

func TestRulesFallbackForUnknownSymbol(t *testing.T) {
	book := NewRuleBook(DefaultTable())
	rules := book.Rules("DOGE/USDT")
	if rules != DefaultRules() {
		t.Fatalf("expected default rules for unknown symbol, got %+v", rules)
	}

	btc := book.Rules("BTC/USDT")
	if btc.PricePrecision != 2 || btc.AmountPrecision != 6 {
		t.Fatalf("unexpected BTC rules: %+v", btc)
	}
}

func TestQuantizePricePinnedValues(t *testing.T) {
	book := NewRuleBook(DefaultTable())

	// BTC/USDT has price precision 2; rounding is half-away-from-zero.
	if got := book.QuantizePrice("BTC/USDT", 50123.456); got != 50123.46 {
		t.Fatalf("expected 50123.46, got %v", got)
	}
	if got := book.QuantizePrice("BTC/USDT", 50123.455); got != 50123.46 {
		t.Fatalf("expected half to round away from zero, got %v", got)
	}
	// Unknown symbol uses the default precision of 4.
	if got := book.QuantizePrice("DOGE/USDT", 1.2345678); got != 1.2346 {
		t.Fatalf("expected 1.2346, got %v", got)
	}
}

func TestQuantizePriceIdempotent(t *testing.T) {
	book := NewRuleBook(DefaultTable())
	prices := []float64{0, 0.00001, 1.23456789, 99.995, 50123.456, 1e9}
	symbols := []string{"BTC/USDT", "ADA/USDT", "DOGE/USDT"}
	for _, sym := range symbols {
		for _, px := range prices {
			once := book.QuantizePrice(sym, px)
			twice := book.QuantizePrice(sym, once)
			if once != twice {
				t.Fatalf("%s %v: quantize not idempotent (%v != %v)", sym, px, once, twice)
			}
		}
	}
}

func TestQuantizeQuantityFloorsUpToMinimum(t *testing.T) {
	book := NewRuleBook(DefaultTable())

	// Rounds to amount precision 6 first.
	if got := book.QuantizeQuantity("BTC/USDT", 0.12345678); got != 0.123457 {
		t.Fatalf("expected 0.123457, got %v", got)
	}
	// A tiny nonzero quantity rounds to zero, then clamps UP to the minimum.
	if got := book.QuantizeQuantity("BTC/USDT", 0.0000001); got != 0.00001 {
		t.Fatalf("expected floor-up to 0.00001, got %v", got)
	}
	// ADA has precision 0 and min 1: half rounds away from zero.
	if got := book.QuantizeQuantity("ADA/USDT", 2.5); got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
	if got := book.QuantizeQuantity("ADA/USDT", 0.2); got != 1 {
		t.Fatalf("expected floor-up to 1, got %v", got)
	}
}

func TestMeetsMinNotional(t *testing.T) {
	book := NewRuleBook(DefaultTable())
	if !book.MeetsMinNotional("BTC/USDT", 100, 0.1) {
		t.Fatalf("expected 10.0 notional to pass at the boundary")
	}
	if book.MeetsMinNotional("BTC/USDT", 100, 0.099) {
		t.Fatalf("expected 9.9 notional to fail")
	}
}

func TestRuleSetValidate(t *testing.T) {
	if err := DefaultRules().Validate(); err != nil {
		t.Fatalf("default rules should validate: %v", err)
	}
	bad := RuleSet{PricePrecision: -1}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for negative precision")
	}
	bad = RuleSet{NotionalMin: -10}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for negative notional minimum")
	}
}

func TestRuleBookCopiesInput(t *testing.T) {
	table := map[string]RuleSet{"BTC/USDT": {PricePrecision: 2, AmountPrecision: 6, AmountMin: 0.00001, NotionalMin: 10}}
	book := NewRuleBook(table)
	table["BTC/USDT"] = RuleSet{PricePrecision: 8}
	if got := book.Rules("BTC/USDT").PricePrecision; got != 2 {
		t.Fatalf("rule book should be immutable after build, got precision %d", got)
	}
	if math.IsNaN(book.QuantizePrice("BTC/USDT", 1)) {
		t.Fatalf("unexpected NaN")
	}
}
