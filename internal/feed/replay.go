package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"cryptosim/internal/market"
)

// runReplay emits the recorded snapshots in chronological order at the
// configured cadence and returns nil once the file is exhausted.
func (f *Feed) runReplay(ctx context.Context, out chan<- market.Snapshot) error {
	snapshots, err := f.loadReplayCSV(f.replayPath)
	if err != nil {
		return err
	}
	f.log.Info().Int("ticks", len(snapshots)).Str("file", f.replayPath).Msg("replay loaded")

	for i, snap := range snapshots {
		if err := f.emit(ctx, out, snap); err != nil {
			return err
		}
		if i == len(snapshots)-1 {
			break
		}
		select {
		case <-time.After(f.interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// loadReplayCSV parses a header-led CSV of rows
// timestamp,symbol,price,volume,bid,ask, grouping rows that share a timestamp
// into one snapshot. Malformed rows are skipped with a warning, not fatal.
func (f *Feed) loadReplayCSV(path string) ([]market.Snapshot, error) {
	if path == "" {
		return nil, fmt.Errorf("replay feed requires a file")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read replay header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	for _, required := range []string{"timestamp", "symbol", "price", "volume", "bid", "ask"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("replay file missing column %q", required)
		}
	}

	grouped := make(map[string]market.Snapshot)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			f.log.Warn().Err(err).Msg("skipping malformed replay row")
			continue
		}
		ts := row[columns["timestamp"]]
		symbol := row[columns["symbol"]]
		price, err1 := strconv.ParseFloat(row[columns["price"]], 64)
		volume, err2 := strconv.ParseFloat(row[columns["volume"]], 64)
		bid, err3 := strconv.ParseFloat(row[columns["bid"]], 64)
		ask, err4 := strconv.ParseFloat(row[columns["ask"]], 64)
		if symbol == "" || err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			f.log.Warn().Str("symbol", symbol).Str("timestamp", ts).Msg("skipping malformed replay row")
			continue
		}
		snap := grouped[ts]
		if snap == nil {
			snap = make(market.Snapshot)
			grouped[ts] = snap
		}
		snap[symbol] = market.Sample{
			Symbol: symbol,
			Price:  price,
			Volume: volume,
			Bid:    bid,
			Ask:    ask,
			Ts:     parseReplayTime(ts),
		}
	}

	keys := make([]string, 0, len(grouped))
	for ts := range grouped {
		keys = append(keys, ts)
	}
	sort.Strings(keys)
	snapshots := make([]market.Snapshot, 0, len(keys))
	for _, ts := range keys {
		snapshots = append(snapshots, grouped[ts])
	}
	return snapshots, nil
}

func parseReplayTime(raw string) time.Time {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts
	}
	if ts, err := time.Parse("2006-01-02 15:04:05", raw); err == nil {
		return ts
	}
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0)
	}
	return time.Time{}
}
