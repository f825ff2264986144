package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestServeRegistersMetrics(t *testing.T) {
	srv := Serve(":0")
	defer srv.Close()

	TicksTotal.WithLabelValues("BTC/USDT").Inc()
	DecisionsTotal.WithLabelValues("BTC/USDT", "HOLD").Inc()
	TradesTotal.WithLabelValues("BTC/USDT", "BUY").Inc()
	TradeRejectsTotal.WithLabelValues("BTC/USDT", "min_notional").Inc()
	SessionResets.Inc()

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	want := map[string]bool{
		"ticks_total":          false,
		"decisions_total":      false,
		"trades_total":         false,
		"trade_rejects_total":  false,
		"session_resets_total": false,
	}
	for _, mf := range mfs {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("%s metric not found", name)
		}
	}
}
