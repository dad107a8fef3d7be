package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/campaign-engine/internal/dispatch"
	"github.com/sells-group/campaign-engine/internal/engine"
	"github.com/sells-group/campaign-engine/internal/resilience"
	"github.com/sells-group/campaign-engine/internal/store"
)

// openStore constructs the configured store backend.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

// newDispatcher constructs the configured outreach dispatcher.
func newDispatcher() dispatch.Dispatcher {
	if cfg.Dispatch.Mode == "webhook" && cfg.Dispatch.WebhookURL != "" {
		return dispatch.NewWebhook(cfg.Dispatch.WebhookURL)
	}
	return dispatch.Logger{}
}

// engineConfig maps application configuration onto the engine.
func engineConfig() engine.Config {
	return engine.Config{
		CheckpointFractions: cfg.Engine.CheckpointFractions,
		EscalationThreshold: cfg.Engine.EscalationThreshold,
		Channel:             cfg.Engine.Channel,
		DispatchRatePerSec:  cfg.Dispatch.RatePerSec,
		Retry:               resilience.DefaultRetryConfig(),
	}
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the campaign database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}
		zap.L().Info("migration complete", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
