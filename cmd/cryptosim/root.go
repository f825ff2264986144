package main

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"cryptosim/internal/advisor"
	"cryptosim/internal/config"
	"cryptosim/internal/engine"
	"cryptosim/internal/exchange"
	"cryptosim/internal/portfolio"
	"cryptosim/internal/util"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cryptosim",
		Short:         "Algorithmic crypto trading simulator (no real funds)",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Optional .env overlay for local runs; missing file is fine.
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to YAML configuration")
	root.AddCommand(newRunCmd(), newReplayCmd(), newConfigCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// buildSession wires the rule book, portfolio, and advisor into a session.
// The returned closer flushes the trade recorder, if one is configured.
func buildSession(cfg *config.Config, log zerolog.Logger) (*engine.Session, func(), error) {
	rules := exchange.NewRuleBook(cfg.Rules)
	pf := portfolio.New(cfg.Simulator.InitialBalance, rules, log)

	closer := func() {}
	if cfg.Simulator.TradeLogPath != "" {
		recorder, err := portfolio.NewJSONLRecorder(cfg.Simulator.TradeLogPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open trade log: %w", err)
		}
		pf.SetRecorder(recorder)
		closer = func() { _ = recorder.Close() }
	}

	adv := advisor.New(cfg.Risk, cfg.Simulator.RiskProfile, log)
	session := engine.NewSession(adv, pf, cfg.Simulator.Symbols, log)
	return session, closer, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return util.NewLoggerWithFile(cfg.App.LogLevel, cfg.App.LogFile)
}

func tickInterval(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Feed.TickIntervalMs) * time.Millisecond
}
