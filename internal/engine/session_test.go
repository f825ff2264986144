package engine

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cryptosim/internal/advisor"
	"cryptosim/internal/exchange"
	"cryptosim/internal/market"
	"cryptosim/internal/portfolio"
	"cryptosim/internal/risk"
)

func newTestSession(balance float64, symbols []string) *Session {
	adv := advisor.New(risk.DefaultProfiles(), "aggressive", zerolog.Nop())
	pf := portfolio.New(balance, exchange.NewRuleBook(exchange.DefaultTable()), zerolog.Nop())
	return NewSession(adv, pf, symbols, zerolog.Nop())
}

func snapshotFor(symbol string, price float64) market.Snapshot {
	return market.Snapshot{symbol: {
		Symbol: symbol,
		Price:  price,
		Volume: 100,
		Bid:    price - 0.5,
		Ask:    price + 0.5,
		Ts:     time.Now(),
	}}
}

func TestProcessTickBuysAndTakesProfit(t *testing.T) {
	session := newTestSession(1000, []string{"BTC/USDT"})

	// A steady decline with a final recovery pushes RSI below 35 while the
	// last price sits above the short moving average.
	prices := []float64{100, 99, 98, 97, 96, 95, 94, 93, 92, 91, 90, 89, 88, 91}
	for _, px := range prices {
		session.ProcessTick(snapshotFor("BTC/USDT", px))
	}

	trades := session.RecentTrades(0)
	if len(trades) != 1 || trades[0].Side != portfolio.Buy {
		t.Fatalf("expected exactly one BUY, got %+v", trades)
	}
	if session.Balance() >= 1000 {
		t.Fatalf("expected cash reduced after buy, got %v", session.Balance())
	}

	// Well above the average cost the take-profit override liquidates fully.
	session.ProcessTick(snapshotFor("BTC/USDT", 120))

	trades = session.RecentTrades(0)
	if len(trades) != 2 || trades[1].Side != portfolio.Sell {
		t.Fatalf("expected BUY then SELL, got %+v", trades)
	}
	if len(session.Holdings()) != 0 {
		t.Fatalf("expected holding cleared after take-profit")
	}
	if session.ProfitLoss() <= 0 {
		t.Fatalf("expected positive profit, got %v", session.ProfitLoss())
	}

	d, ok := session.LastDecision("BTC/USDT")
	if !ok || d.Action != advisor.Sell || d.Fraction != 1.0 {
		t.Fatalf("unexpected last decision: %+v", d)
	}
}

func TestProcessTickSkipsMissingSymbols(t *testing.T) {
	session := newTestSession(1000, []string{"BTC/USDT", "ETH/USDT"})

	// Partial ticks are not an error; only present symbols advance history.
	session.ProcessTick(snapshotFor("BTC/USDT", 50000))

	if _, ok := session.LastDecision("ETH/USDT"); ok {
		t.Fatalf("absent symbol must be skipped, not decided")
	}
	if _, ok := session.LastDecision("BTC/USDT"); !ok {
		t.Fatalf("present symbol should have a decision")
	}
}

func TestSellAllLiquidatesHoldings(t *testing.T) {
	session := newTestSession(1000, []string{"BTC/USDT"})
	prices := []float64{100, 99, 98, 97, 96, 95, 94, 93, 92, 91, 90, 89, 88, 91}
	for _, px := range prices {
		session.ProcessTick(snapshotFor("BTC/USDT", px))
	}
	if len(session.Holdings()) != 1 {
		t.Fatalf("expected one holding before liquidation")
	}

	sold := session.SellAll(snapshotFor("BTC/USDT", 91))
	if sold != 1 {
		t.Fatalf("expected 1 position sold, got %d", sold)
	}
	if len(session.Holdings()) != 0 {
		t.Fatalf("expected no holdings after SellAll")
	}

	// Nothing left to sell on a second pass.
	if sold := session.SellAll(snapshotFor("BTC/USDT", 91)); sold != 0 {
		t.Fatalf("expected 0 positions sold, got %d", sold)
	}
}

func TestAddRemoveSymbol(t *testing.T) {
	session := newTestSession(1000, []string{"BTC/USDT"})
	session.AddSymbol("ETH/USDT")
	session.AddSymbol("ETH/USDT") // duplicate is a no-op

	symbols := session.Symbols()
	if len(symbols) != 2 || symbols[0] != "BTC/USDT" || symbols[1] != "ETH/USDT" {
		t.Fatalf("unexpected symbol set: %+v", symbols)
	}

	prices := []float64{100, 99, 98, 97, 96, 95, 94, 93, 92, 91, 90, 89, 88, 91}
	for _, px := range prices {
		session.ProcessTick(snapshotFor("ETH/USDT", px))
	}
	if len(session.Holdings()) != 1 {
		t.Fatalf("expected a holding before removal")
	}

	session.RemoveSymbol("ETH/USDT")
	if got := session.Symbols(); len(got) != 1 || got[0] != "BTC/USDT" {
		t.Fatalf("unexpected symbol set after removal: %+v", got)
	}
	// Removal discards the holding without liquidating: cash stays reduced.
	if len(session.Holdings()) != 0 {
		t.Fatalf("expected holding discarded with its symbol")
	}
	if session.Balance() >= 1000 {
		t.Fatalf("removal must not refund cash")
	}
}

func TestResetStartsFreshEpoch(t *testing.T) {
	session := newTestSession(1000, []string{"BTC/USDT"})
	prices := []float64{100, 99, 98, 97, 96, 95, 94, 93, 92, 91, 90, 89, 88, 91}
	for _, px := range prices {
		session.ProcessTick(snapshotFor("BTC/USDT", px))
	}

	session.Reset()

	if session.Balance() != 1000 {
		t.Fatalf("expected balance restored, got %v", session.Balance())
	}
	if len(session.RecentTrades(0)) != 0 {
		t.Fatalf("expected empty trade log")
	}
	if _, ok := session.LastDecision("BTC/USDT"); ok {
		t.Fatalf("expected decision log cleared")
	}

	// Histories were cleared too, so the warm-up gate applies again.
	session.ProcessTick(snapshotFor("BTC/USDT", 91))
	if d, _ := session.LastDecision("BTC/USDT"); d.Action != advisor.Hold {
		t.Fatalf("expected HOLD during re-warm-up, got %s", d.Action)
	}
}
