// Package market standardizes payloads shared between data feeds and the simulation core.
package market

import "time"

// Sample carries one symbol's observation for a single tick.
type Sample struct {
	Symbol string
	Price  float64
	Volume float64
	Bid    float64
	Ask    float64
	Ts     time.Time
}

// Spread returns the quoted ask/bid gap.
func (s Sample) Spread() float64 { return s.Ask - s.Bid }

// Snapshot maps symbol to sample for one tick. Symbols absent from the map are
// simply skipped that tick.
type Snapshot map[string]Sample

// Prices flattens a snapshot into symbol to last price for mark-to-market math.
func Prices(snap Snapshot) map[string]float64 {
	out := make(map[string]float64, len(snap))
	for sym, sample := range snap {
		out[sym] = sample.Price
	}
	return out
}
