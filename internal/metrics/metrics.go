package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks ingested"},
		[]string{"symbol"},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "decisions_total", Help: "Advisor decisions emitted"},
		[]string{"symbol", "action"},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trades_total", Help: "Simulated trades executed"},
		[]string{"symbol", "side"},
	)
	TradeRejectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trade_rejects_total", Help: "Simulated trades rejected"},
		[]string{"symbol", "reason"},
	)
	SessionResets = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "session_resets_total", Help: "Simulation epochs restarted"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, DecisionsTotal, TradesTotal, TradeRejectsTotal, SessionResets)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
