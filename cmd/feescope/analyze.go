package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mtzanidakis/feescope/internal/config"
	"github.com/mtzanidakis/feescope/internal/state"
	"github.com/mtzanidakis/feescope/internal/store"
	"github.com/mtzanidakis/feescope/internal/workflow"
)

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	chainsFlag := fs.String("chains", "", "comma-separated chains to analyze (required)")
	timeframe := fs.String("timeframe", "7d", "analysis timeframe: 1d, 7d, 30d, historical, trend")
	asJSON := fs.Bool("json", false, "print the full analysis state as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *chainsFlag == "" {
		fs.Usage()
		return fmt.Errorf("missing -chains flag")
	}
	chains := strings.Split(*chainsFlag, ",")
	if _, err := state.ParseTimeframe(*timeframe); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	runner, err := workflow.NewRunner(cfg, newLLMClient(cfg), db, nil)
	if err != nil {
		return fmt.Errorf("init runner: %w", err)
	}

	a, err := runner.Run(context.Background(), chains, *timeframe, store.RunSourceCLI)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(a); err != nil {
			return err
		}
	} else {
		printReport(a)
	}

	if a.Failed() {
		return fmt.Errorf("analysis failed: %s", strings.Join(a.Errors, "; "))
	}
	return nil
}

func printReport(a state.Analysis) {
	if a.Failed() {
		fmt.Printf("Run %s failed:\n", a.RunID)
		for _, e := range a.Errors {
			fmt.Printf("  - %s\n", e)
		}
		return
	}

	syn := a.Synthesis
	fmt.Printf("Revenue Analysis %s (%s, %s)\n\n", a.RunID, strings.Join(a.Chains, ", "), a.Timeframe)

	section := func(title, body string) {
		if body == "" {
			return
		}
		fmt.Printf("## %s\n\n%s\n\n", title, body)
	}
	list := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Printf("## %s\n\n", title)
		for _, item := range items {
			fmt.Printf("- %s\n", item)
		}
		fmt.Println()
	}

	section("Executive Summary", syn.ExecutiveSummary)
	section("Competitive Landscape", syn.CompetitiveLandscape)
	list("Category Insights", syn.CategoryInsights)
	list("Contract Insights", syn.ContractInsights)
	list("Growth Hypotheses", syn.GrowthHypotheses)
	list("Recommendations", syn.Recommendations)
	list("Risk Assessment", syn.RiskAssessment)
	list("Next Steps", syn.NextSteps)
	section("Cross-Chain Comparison", syn.CrossChainComparison)
	section("Narrative", syn.Narrative)
}
