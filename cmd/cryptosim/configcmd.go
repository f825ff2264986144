package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print a summary of the loaded configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Println("--- Configuration Summary ---")
			fmt.Printf("App: %s (%s)\n", cfg.App.Name, cfg.App.Env)
			fmt.Printf("Initial balance: $%.2f\n", cfg.Simulator.InitialBalance)
			fmt.Printf("Risk profile: %s\n", cfg.Simulator.RiskProfile)
			fmt.Printf("Symbols: %s\n", strings.Join(cfg.Simulator.Symbols, ", "))
			fmt.Printf("Feed: %s (tick %dms)\n", cfg.Feed.Provider, cfg.Feed.TickIntervalMs)

			names := make([]string, 0, len(cfg.Risk))
			for name := range cfg.Risk {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				profile := cfg.Risk[name]
				fmt.Printf("Risk %-12s threshold=%g max_fraction=%.2f\n",
					name, profile.Threshold, profile.MaxPositionFraction)
			}

			symbols := make([]string, 0, len(cfg.Rules))
			for sym := range cfg.Rules {
				symbols = append(symbols, sym)
			}
			sort.Strings(symbols)
			for _, sym := range symbols {
				rules := cfg.Rules[sym]
				fmt.Printf("Rules %-10s px_prec=%d qty_prec=%d qty_min=%g notional_min=%.2f\n",
					sym, rules.PricePrecision, rules.AmountPrecision, rules.AmountMin, rules.NotionalMin)
			}
			return nil
		},
	}
}
