package main

import (
	"context"
	"errors"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"cryptosim/internal/engine"
	"cryptosim/internal/feed"
	"cryptosim/internal/market"
)

func newReplayCmd() *cobra.Command {
	var file string
	var intervalMs int

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a recorded CSV of ticks through the simulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			session, closeRecorder, err := buildSession(cfg, log)
			if err != nil {
				return err
			}
			defer closeRecorder()

			if file == "" {
				file = cfg.Feed.ReplayFile
			}
			interval := time.Duration(intervalMs) * time.Millisecond

			ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			src := feed.New(feed.ProviderReplay, cfg.Simulator.Symbols, log,
				feed.WithInterval(interval), feed.WithReplayFile(file))
			snapshots := make(chan market.Snapshot, 16)
			done := make(chan error, 1)
			go func() { done <- src.Run(ctx, snapshots) }()

			for {
				select {
				case snap := <-snapshots:
					session.ProcessTick(snap)
				case err := <-done:
					for len(snapshots) > 0 {
						session.ProcessTick(<-snapshots)
					}
					if err != nil && !errors.Is(err, context.Canceled) {
						return err
					}
					logSummary(session, log)
					return nil
				case <-ctx.Done():
					logSummary(session, log)
					return nil
				}
			}
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "replay CSV file; defaults to config")
	cmd.Flags().IntVar(&intervalMs, "interval-ms", 200, "delay between replayed ticks")
	return cmd
}

func logSummary(session *engine.Session, log zerolog.Logger) {
	log.Info().
		Float64("balance", session.Balance()).
		Float64("profit_loss", session.ProfitLoss()).
		Int("trades", len(session.RecentTrades(0))).
		Int("decisions", len(session.Decisions(0))).
		Msg("simulation finished")
}
