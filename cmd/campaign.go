package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/campaign-engine/internal/directory"
	"github.com/sells-group/campaign-engine/internal/engine"
	"github.com/sells-group/campaign-engine/internal/model"
	"github.com/sells-group/campaign-engine/internal/store"
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Manage outreach campaigns",
}

var (
	createTarget   int
	createDeadline time.Duration
	createUrgency  float64
	createTiers    []string
)

var campaignCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a campaign and dispatch the first outreach wave",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tiers, err := parseTierFlags(createTiers)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		dir := directory.NewStatic(nil)
		for _, t := range tiers {
			dir.Ensure(t.ID, t.Available)
		}

		urgency := createUrgency
		if urgency == 0 {
			urgency = cfg.Engine.DefaultUrgency
		}

		eng := engine.New(st, dir, newDispatcher(), engineConfig())
		c, err := eng.CreateCampaign(ctx, model.TargetRequest{
			TargetCount:       createTarget,
			Deadline:          time.Now().UTC().Add(createDeadline),
			UrgencyMultiplier: urgency,
			Tiers:             tiers,
		})
		if err != nil {
			return err
		}

		cmd.Printf("campaign %s created\n", c.ID)
		cmd.Printf("  status:     %s\n", c.Status)
		cmd.Printf("  contacts:   %d\n", len(c.SelectedCandidates))
		cmd.Printf("  expected:   %.2f responses\n", c.Strategy.ExpectedResponses)
		cmd.Printf("  confidence: %.2f\n", c.Strategy.Confidence)
		return nil
	},
}

var campaignStatusCmd = &cobra.Command{
	Use:   "status <campaign-id>",
	Short: "Show a campaign's progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		eng := engine.New(st, directory.NewStatic(nil), newDispatcher(), engineConfig())
		report, err := eng.GetStatus(ctx, args[0])
		if err != nil {
			return err
		}

		cmd.Printf("campaign %s\n", report.ID)
		cmd.Printf("  status:     %s\n", report.Status)
		cmd.Printf("  responses:  %d/%d\n", report.ActualCumulative, report.TargetCount)
		cmd.Printf("  confidence: %.2f\n", report.Confidence)
		cmd.Printf("  selected:   %d candidates\n", report.SelectedCount)
		cmd.Printf("  late:       %d responses\n", report.LateResponses)
		cmd.Printf("  deadline:   %s\n", report.DeadlineAt.Format(time.RFC3339))
		for _, cp := range report.Checkpoints {
			marker := " "
			if cp.Fired {
				marker = "x"
			}
			escalated := ""
			if cp.EscalationTriggered {
				escalated = " (escalated)"
			}
			cmd.Printf("  [%s] %.0f%% checkpoint at %s, expects %.1f%s\n",
				marker, cp.Fraction*100, cp.ScheduledAt.Format(time.RFC3339), cp.ExpectedCumulative, escalated)
		}
		return nil
	},
}

var campaignRespondCmd = &cobra.Command{
	Use:   "respond <campaign-id>",
	Short: "Record an inbound candidate response",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		eng := engine.New(st, directory.NewStatic(nil), newDispatcher(), engineConfig())
		outcome, err := eng.RecordResponse(ctx, args[0])
		if err != nil {
			return err
		}

		cmd.Printf("response %s\n", outcome)
		return nil
	},
}

var listStatus string

var campaignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List campaigns",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		filter := store.CampaignFilter{}
		if listStatus != "" {
			filter.Status = model.CampaignStatus(listStatus)
		}

		campaigns, err := st.ListCampaigns(ctx, filter)
		if err != nil {
			return err
		}

		for _, c := range campaigns {
			cmd.Printf("%s  %-10s %d/%d  deadline %s\n",
				c.ID, c.Status, c.ActualCumulative, c.Request.TargetCount,
				c.DeadlineAt.Format(time.RFC3339))
		}
		return nil
	},
}

var campaignCheckpointsCmd = &cobra.Command{
	Use:   "checkpoints <campaign-id>",
	Short: "Show a campaign's checkpoint timeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		c, err := st.GetCampaign(ctx, args[0])
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, cp := range c.Checkpoints {
			state := "pending"
			switch {
			case cp.EscalationTriggered:
				state = "escalated"
			case cp.Fired:
				state = "on track"
			case !cp.ScheduledAt.After(now):
				state = "due"
			}
			cmd.Printf("%.0f%%  %s  expects %.1f  %s\n",
				cp.Fraction*100, cp.ScheduledAt.Format(time.RFC3339), cp.ExpectedCumulative, state)
		}
		return nil
	},
}

// parseTierFlags parses repeated --tier id:rate:available flags,
// preserving priority order.
func parseTierFlags(flags []string) ([]model.Tier, error) {
	if len(flags) == 0 {
		return nil, eris.New("at least one --tier id:rate:available is required")
	}

	tiers := make([]model.Tier, 0, len(flags))
	for _, f := range flags {
		parts := strings.Split(f, ":")
		if len(parts) != 3 {
			return nil, eris.Errorf("invalid tier %q, expected id:rate:available", f)
		}
		rate, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid tier rate in %q", f)
		}
		available, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, eris.Wrapf(err, "invalid tier availability in %q", f)
		}
		tiers = append(tiers, model.Tier{ID: parts[0], Rate: rate, Available: available})
	}
	return tiers, nil
}

func init() {
	campaignCreateCmd.Flags().IntVar(&createTarget, "target", 0, "number of responses needed")
	campaignCreateCmd.Flags().DurationVar(&createDeadline, "deadline", 72*time.Hour, "time window to reach the target")
	campaignCreateCmd.Flags().Float64Var(&createUrgency, "urgency", 0, "contact-count safety multiplier (default from config)")
	campaignCreateCmd.Flags().StringArrayVar(&createTiers, "tier", nil, "tier as id:rate:available, repeatable, highest priority first")

	campaignListCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")

	campaignCmd.AddCommand(campaignCreateCmd, campaignStatusCmd, campaignRespondCmd, campaignListCmd, campaignCheckpointsCmd)
	rootCmd.AddCommand(campaignCmd)
}
