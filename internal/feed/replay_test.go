package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cryptosim/internal/market"
)

func writeReplayFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ticks.csv")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write replay file: %v", err)
	}
	return path
}

func TestReplayGroupsRowsByTimestamp(t *testing.T) {
	path := writeReplayFile(t, `timestamp,symbol,price,volume,bid,ask
2024-01-01T00:00:00Z,BTC/USDT,50000,100,49999,50001
2024-01-01T00:00:00Z,ETH/USDT,2500,200,2499,2501
2024-01-01T00:00:01Z,BTC/USDT,50100,110,50099,50101
`)
	f := New(ProviderReplay, []string{"BTC/USDT", "ETH/USDT"}, zerolog.Nop(),
		feedOptions(path)...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := make(chan market.Snapshot, 8)
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx, out) }()

	first := <-out
	if len(first) != 2 {
		t.Fatalf("expected first snapshot to group two symbols, got %d", len(first))
	}
	if first["BTC/USDT"].Price != 50000 || first["ETH/USDT"].Price != 2500 {
		t.Fatalf("unexpected first snapshot: %+v", first)
	}
	if got := first["BTC/USDT"].Spread(); got != 2 {
		t.Fatalf("expected spread 2, got %v", got)
	}

	second := <-out
	if len(second) != 1 || second["BTC/USDT"].Price != 50100 {
		t.Fatalf("unexpected second snapshot: %+v", second)
	}

	if err := <-done; err != nil {
		t.Fatalf("replay returned error: %v", err)
	}
}

func TestReplaySkipsMalformedRows(t *testing.T) {
	path := writeReplayFile(t, `timestamp,symbol,price,volume,bid,ask
2024-01-01T00:00:00Z,BTC/USDT,notanumber,100,1,2
2024-01-01T00:00:01Z,BTC/USDT,50100,110,50099,50101
`)
	f := New(ProviderReplay, []string{"BTC/USDT"}, zerolog.Nop(), feedOptions(path)...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := make(chan market.Snapshot, 8)
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx, out) }()

	snap := <-out
	if snap["BTC/USDT"].Price != 50100 {
		t.Fatalf("expected malformed row skipped, got %+v", snap)
	}
	if err := <-done; err != nil {
		t.Fatalf("replay returned error: %v", err)
	}
}

func TestReplayMissingFileFails(t *testing.T) {
	f := New(ProviderReplay, []string{"BTC/USDT"}, zerolog.Nop())
	err := f.Run(context.Background(), make(chan market.Snapshot, 1))
	if err == nil {
		t.Fatalf("expected error without a replay file")
	}
}

func TestReplayMissingColumnFails(t *testing.T) {
	path := writeReplayFile(t, "timestamp,symbol,price\n")
	f := New(ProviderReplay, []string{"BTC/USDT"}, zerolog.Nop(), feedOptions(path)...)
	err := f.Run(context.Background(), make(chan market.Snapshot, 1))
	if err == nil {
		t.Fatalf("expected error for missing columns")
	}
}

func feedOptions(path string) []Option {
	return []Option{WithReplayFile(path), WithInterval(time.Millisecond)}
}

func TestStubEmitsTrackedSymbols(t *testing.T) {
	f := New(ProviderStub, []string{"BTC/USDT", "ETH/USDT", ""}, zerolog.Nop(),
		WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := make(chan market.Snapshot, 8)
	go func() { _ = f.Run(ctx, out) }()

	snap := <-out
	if len(snap) != 2 {
		t.Fatalf("expected two symbols, got %d", len(snap))
	}
	for sym, sample := range snap {
		if sample.Price <= 0 || sample.Volume <= 0 {
			t.Fatalf("stub emitted invalid sample for %s: %+v", sym, sample)
		}
		if sample.Spread() <= 0 {
			t.Fatalf("stub should quote a positive spread")
		}
	}

	next := <-out
	if next["BTC/USDT"].Price <= snap["BTC/USDT"].Price {
		t.Fatalf("stub price should drift upward")
	}
	cancel()
}
