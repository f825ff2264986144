package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cryptosim/internal/market"
)

type binanceEnvelope struct {
	Stream string        `json:"stream"`
	Data   binanceTicker `json:"data"`
}

type binanceTicker struct {
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Last      string `json:"c"`
	Volume    string `json:"v"`
	Bid       string `json:"b"`
	Ask       string `json:"a"`
}

// streamName maps a configured symbol like BTC/USDT to its Binance stream id.
func streamName(symbol string) string {
	return strings.ToLower(strings.ReplaceAll(symbol, "/", "")) + "@ticker"
}

func (f *Feed) runBinance(ctx context.Context, out chan<- market.Snapshot) error {
	symbols := f.snapshotSymbols()
	if len(symbols) == 0 {
		return fmt.Errorf("binance feed requires at least one symbol")
	}

	aliases := make(map[string]string, len(symbols))
	streams := make([]string, len(symbols))
	for i, sym := range symbols {
		streams[i] = streamName(sym)
		aliases[strings.ToUpper(strings.ReplaceAll(sym, "/", ""))] = sym
	}

	url := fmt.Sprintf("wss://stream.binance.com:9443/stream?streams=%s", strings.Join(streams, "/"))
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumeBinanceStream(ctx, url, aliases, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("binance feed disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *Feed) consumeBinanceStream(ctx context.Context, url string, aliases map[string]string, out chan<- market.Snapshot) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("provider", ProviderBinance).Strs("symbols", f.snapshotSymbols()).Msg("connected market data feed")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("binance ping failed")
					return
				}
			case <-streamCtx.Done():
				return
			}
		}
	}()

	// Ticker messages arrive per symbol; they are coalesced into one snapshot
	// per emit interval so the core sees whole ticks.
	var latestMu sync.Mutex
	latest := make(market.Snapshot)

	go func() {
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				latestMu.Lock()
				snap := make(market.Snapshot, len(latest))
				for sym, sample := range latest {
					snap[sym] = sample
				}
				latestMu.Unlock()
				if len(snap) == 0 {
					continue
				}
				if err := f.emit(streamCtx, out, snap); err != nil {
					return
				}
			case <-streamCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env binanceEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			f.log.Warn().Err(err).Msg("failed to decode binance message")
			continue
		}
		sample, ok := f.parseBinanceTicker(env.Data, aliases)
		if !ok {
			continue
		}
		latestMu.Lock()
		latest[sample.Symbol] = sample
		latestMu.Unlock()
	}
}

func (f *Feed) parseBinanceTicker(data binanceTicker, aliases map[string]string) (market.Sample, bool) {
	alias, ok := aliases[strings.ToUpper(data.Symbol)]
	if !ok {
		return market.Sample{}, false
	}
	px, err := strconv.ParseFloat(data.Last, 64)
	if err != nil || px <= 0 {
		f.log.Warn().Str("symbol", alias).Msg("invalid price from binance")
		return market.Sample{}, false
	}
	vol, err := strconv.ParseFloat(data.Volume, 64)
	if err != nil {
		f.log.Warn().Str("symbol", alias).Msg("invalid volume from binance")
		return market.Sample{}, false
	}
	bid, _ := strconv.ParseFloat(data.Bid, 64)
	ask, _ := strconv.ParseFloat(data.Ask, 64)
	return market.Sample{
		Symbol: alias,
		Price:  px,
		Volume: vol,
		Bid:    bid,
		Ask:    ask,
		Ts:     time.UnixMilli(data.EventTime),
	}, true
}
