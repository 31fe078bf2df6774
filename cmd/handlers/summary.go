package handlers

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"yourbody/internal/config"
	"yourbody/internal/core"
)

// NewSummaryCmd creates the summary command for computing a period summary
// from the command line.
func NewSummaryCmd() *cobra.Command {
	var (
		userID   int64
		date     string
		weekly   bool
		force    bool
		tzOffset int
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Compute or fetch a cached period summary",
		Long: `Compute a daily or weekly summary for a user and print the artifact.

Serves the cached artifact when the period's entries have not changed;
use --force to recompute regardless.

Examples:
  # Today's summary for a user
  yourbody summary --user 123456789

  # A specific past day
  yourbody summary --user 123456789 --date 2025-01-18

  # The week containing a date, forced fresh
  yourbody summary --user 123456789 --date 2025-01-18 --weekly --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(cmd, userID, date, weekly, force, tzOffset)
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "Telegram user id (required)")
	cmd.Flags().StringVar(&date, "date", "", "reference date YYYY-MM-DD (default: user-local today)")
	cmd.Flags().BoolVar(&weekly, "weekly", false, "summarize the ISO week containing the date")
	cmd.Flags().BoolVar(&force, "force", false, "recompute even when the cache is fresh")
	cmd.Flags().IntVar(&tzOffset, "tz-offset", 0, "timezone offset minutes (default: from the user's profile)")
	cmd.MarkFlagRequired("user")

	return cmd
}

func runSummary(cmd *cobra.Command, userID int64, date string, weekly, force bool, tzOffset int) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	svc, err := buildServices(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	if !cmd.Flags().Changed("tz-offset") {
		profile, _, err := svc.profiles.Get(cmd.Context(), userID)
		if err != nil {
			return err
		}
		tzOffset = profile.TZOffsetMinutes
	}

	ptype := core.PeriodDay
	if weekly {
		ptype = core.PeriodWeek
	}

	res, err := svc.summaries.GetSummary(cmd.Context(), userID, ptype, date, tzOffset, force)
	if err != nil {
		return err
	}

	out := map[string]any{
		"period_start": res.Artifact.Key.Start,
		"period_type":  res.Artifact.Key.Type,
		"status":       res.Artifact.Status,
		"cached":       res.Cached,
		"generated_at": res.Artifact.GeneratedAt,
		"fingerprint":  res.Artifact.Fingerprint,
		"summary":      res.Artifact.Payload,
	}
	if res.Message != "" {
		out["message"] = res.Message
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
