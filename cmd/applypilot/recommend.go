package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/applypilot/internal/aggregation"
	"github.com/jonathan/applypilot/internal/observability"
	"github.com/jonathan/applypilot/internal/types"
)

var matchesFile string

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Print top job recommendations",
	Long:  "Rank an externally scored match list against the signed-in user's profile and print the top recommendations.",
	RunE:  runRecommend,
}

func init() {
	recommendCmd.Flags().StringVarP(&matchesFile, "matches", "m", "", "Path to a JSON file of scored matches (required)")
	recommendCmd.MarkFlagRequired("matches")
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	owner := a.session.Current()
	if owner.IsZero() {
		return fmt.Errorf("no active session; set APPLYPILOT_TOKEN")
	}

	profile, err := a.db.FetchProfile(ctx, owner)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(matchesFile)
	if err != nil {
		return fmt.Errorf("failed to read matches file: %w", err)
	}
	var matches []types.RankedMatch
	if err := json.Unmarshal(data, &matches); err != nil {
		return fmt.Errorf("failed to decode matches file: %w", err)
	}

	recs := aggregation.Recommend(profile, matches, a.cfg.TopRecommendations)
	observability.NewPrinter(os.Stdout).PrintRecommendations(recs)
	return nil
}
