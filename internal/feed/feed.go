// Package feed hosts the tick sources that hand market snapshots to the
// simulation core. The core is agnostic to whether a snapshot originated live
// or from a replay file.
package feed

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cryptosim/internal/market"
	"cryptosim/internal/metrics"
)

const (
	// ProviderStub emits deterministic synthetic snapshots (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance streams live tickers from Binance public websockets.
	ProviderBinance = "binance"
	// ProviderReplay replays a recorded CSV of tick snapshots in order.
	ProviderReplay = "replay"
)

const defaultInterval = time.Second

// Feed represents a pluggable market snapshot source.
type Feed struct {
	provider   string
	symbols    []string
	log        zerolog.Logger
	interval   time.Duration
	replayPath string
	mu         sync.RWMutex
}

// Option configures Feed construction parameters.
type Option func(*Feed)

// WithInterval overrides the cadence at which snapshots are emitted.
func WithInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.interval = d
		}
	}
}

// WithReplayFile points the replay provider at a CSV file.
func WithReplayFile(path string) Option {
	return func(f *Feed) { f.replayPath = path }
}

// New constructs a feed backed by the requested provider.
func New(provider string, symbols []string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider: strings.ToLower(provider),
		log:      log,
		interval: defaultInterval,
	}
	f.setSymbols(symbols)
	for _, opt := range opts {
		opt(f)
	}
	if f.interval <= 0 {
		f.interval = defaultInterval
	}
	return f
}

// SetSymbols replaces the tracked symbol list (deduplicated, sorted for determinism).
func (f *Feed) SetSymbols(symbols []string) {
	f.setSymbols(symbols)
}

func (f *Feed) setSymbols(symbols []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unique := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		unique[sym] = struct{}{}
	}
	f.symbols = f.symbols[:0]
	for sym := range unique {
		f.symbols = append(f.symbols, sym)
	}
	sort.Strings(f.symbols)
}

func (f *Feed) snapshotSymbols() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.symbols))
	copy(out, f.symbols)
	return out
}

// Run pushes snapshots onto the provided channel until the context is
// canceled. The replay provider returns nil once the file is exhausted.
func (f *Feed) Run(ctx context.Context, out chan<- market.Snapshot) error {
	switch f.provider {
	case ProviderBinance:
		return f.runBinance(ctx, out)
	case ProviderReplay:
		return f.runReplay(ctx, out)
	default:
		return f.runStub(ctx, out)
	}
}

func (f *Feed) emit(ctx context.Context, out chan<- market.Snapshot, snap market.Snapshot) error {
	select {
	case out <- snap:
		for sym := range snap {
			metrics.TicksTotal.WithLabelValues(sym).Inc()
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Feed) runStub(ctx context.Context, out chan<- market.Snapshot) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	prices := make(map[string]float64)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			symbols := f.snapshotSymbols()
			snap := make(market.Snapshot, len(symbols))
			for i, sym := range symbols {
				px, ok := prices[sym]
				if !ok {
					px = 100.0 + 10.0*float64(i)
				}
				px += 0.1
				prices[sym] = px
				snap[sym] = market.Sample{
					Symbol: sym,
					Price:  px,
					Volume: 100,
					Bid:    px - 0.05,
					Ask:    px + 0.05,
					Ts:     ts,
				}
			}
			if len(snap) == 0 {
				continue
			}
			if err := f.emit(ctx, out, snap); err != nil {
				return err
			}
		}
	}
}
