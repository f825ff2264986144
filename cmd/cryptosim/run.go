package main

import (
	"context"
	"errors"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cryptosim/internal/feed"
	"cryptosim/internal/market"
	"cryptosim/internal/metrics"
)

func newRunCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulator against a live or synthetic feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			_ = metrics.Serve(cfg.App.MetricsAddr)
			log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

			session, closeRecorder, err := buildSession(cfg, log)
			if err != nil {
				return err
			}
			defer closeRecorder()

			ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if provider == "" {
				provider = cfg.Feed.Provider
			}
			src := feed.New(provider, cfg.Simulator.Symbols, log, feed.WithInterval(tickInterval(cfg)))
			snapshots := make(chan market.Snapshot, 16)
			go func() {
				if err := src.Run(ctx, snapshots); err != nil && !errors.Is(err, context.Canceled) {
					log.Error().Err(err).Msg("feed stopped")
				}
				cancel()
			}()

			status := time.NewTicker(15 * time.Second)
			defer status.Stop()

			log.Info().Str("provider", provider).Msg("simulation started")
			for {
				select {
				case <-ctx.Done():
					logSummary(session, log)
					return nil
				case snap := <-snapshots:
					session.ProcessTick(snap)
				case <-status.C:
					log.Info().
						Float64("balance", session.Balance()).
						Float64("profit_loss", session.ProfitLoss()).
						Int("holdings", len(session.Holdings())).
						Msg("status")
				}
			}
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "feed provider (binance|stub); defaults to config")
	return cmd
}
