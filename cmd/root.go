package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/campaign-engine/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "campaign-engine",
	Short: "Outreach campaign orchestration engine",
	Long:  "Plans tiered outreach to hit a response target before a deadline, tracks campaign progress against scheduled checkpoints, and escalates when a campaign falls behind.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
