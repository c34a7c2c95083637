package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mtzanidakis/feescope/internal/blockspace"
	"github.com/mtzanidakis/feescope/internal/state"
)

const revenueSystemPrompt = `You are a senior blockchain revenue analyst.
You comment on category-level gas fee distributions: revenue drivers,
concentration risk and competitive dynamics. Two or three sentences,
grounded in the numbers you are given.`

// RevenueAgent produces the category and contract reports. Category
// analysis runs first; the supervisor sends the run back for contract
// analysis once category reports exist.
type RevenueAgent struct {
	registry *Registry
	data     *blockspace.Store
}

func NewRevenueAgent(registry *Registry, data *blockspace.Store) *RevenueAgent {
	return &RevenueAgent{registry: registry, data: data}
}

func (r *RevenueAgent) Run(ctx context.Context, a state.Analysis) state.Delta {
	if len(a.CategoryReports) == 0 {
		return r.categoryAnalysis(ctx, a)
	}
	return r.contractAnalysis(ctx, a)
}

func (r *RevenueAgent) categoryAnalysis(ctx context.Context, a state.Analysis) state.Delta {
	dataTf := string(a.Timeframe.DataTimeframe())

	var reports []state.CategoryReport
	for _, chain := range a.Chains {
		shares, err := r.data.CategoryShares(chain, dataTf)
		if err != nil {
			return state.Delta{Errors: []string{fmt.Sprintf("category analysis: %v", err)}}
		}

		report := buildCategoryReport(chain, a.Timeframe, shares)
		if r.registry.Enabled() {
			if commentary, err := r.registry.Complete(ctx, RoleRevenueAgent, revenueSystemPrompt, categoryPrompt(report)); err != nil {
				// Commentary is additive, the deterministic report stands.
				slog.Warn("category commentary failed", "run_id", a.RunID, "chain", chain, "error", err)
			} else {
				report.Commentary = commentary
			}
		}

		reports = append(reports, report)
		slog.Info("category analysis completed", "run_id", a.RunID, "chain", chain,
			"top_category", report.TopCategory, "concentration", report.Concentration)
	}

	return state.Delta{
		Task:            state.TaskRoute,
		CategoryReports: reports,
		Messages: []state.Message{
			note(RoleRevenueAgent, fmt.Sprintf("category analysis completed for %d chains", len(reports))),
		},
	}
}

func (r *RevenueAgent) contractAnalysis(_ context.Context, a state.Analysis) state.Delta {
	dataTf := string(a.Timeframe.DataTimeframe())

	type target struct{ chain, category string }
	var targets []target

	if len(a.TargetCategories) > 0 {
		// Trend insights picked the categories to deep dive.
		for _, chain := range a.Chains {
			for _, cat := range a.TargetCategories {
				targets = append(targets, target{chain, cat})
			}
		}
	} else {
		for _, cr := range a.CategoryReports {
			for _, cat := range topCategories(cr.Shares, 2) {
				targets = append(targets, target{cr.Chain, cat})
			}
		}
	}

	var reports []state.ContractReport
	for _, t := range targets {
		contracts, err := r.data.TopContracts(t.chain, dataTf, 10, t.category)
		if err != nil {
			return state.Delta{Errors: []string{fmt.Sprintf("contract analysis: %v", err)}}
		}
		reports = append(reports, buildContractReport(t.chain, t.category, a.Timeframe, contracts))
		slog.Info("contract analysis completed", "run_id", a.RunID, "chain", t.chain, "category", t.category)
	}

	return state.Delta{
		Task:            state.TaskRoute,
		ContractReports: reports,
		Messages: []state.Message{
			note(RoleRevenueAgent, fmt.Sprintf("contract analysis completed for %d chain/category pairs", len(reports))),
		},
	}
}

func buildCategoryReport(chain string, tf state.Timeframe, shares []blockspace.CategoryShare) state.CategoryReport {
	report := state.CategoryReport{
		Chain:     chain,
		Timeframe: tf,
	}

	var allShares []float64
	for _, s := range shares {
		report.Shares = append(report.Shares, state.CategoryShare{
			Category:   s.Category,
			Share:      s.Share,
			GasFeesUSD: s.GasFeesUSD,
		})
		report.TotalGasFeesUSD += s.GasFeesUSD
		allShares = append(allShares, s.Share)
		if report.TopCategory == "" && s.Category != "unlabeled" {
			report.TopCategory = s.Category
			report.TopShare = s.Share
		}
	}
	report.Concentration = blockspace.Concentration(allShares, 3)
	report.KeyInsights = categoryInsights(report)
	return report
}

// categoryInsights derives the headline observations from the share
// distribution, mirroring how an analyst reads concentration numbers.
func categoryInsights(r state.CategoryReport) []string {
	var insights []string

	if r.TopShare > 40 {
		insights = append(insights, fmt.Sprintf(
			"Strong %s dominance with %.1f%% market share indicates mature ecosystem focus",
			strings.ToUpper(r.TopCategory), r.TopShare))
	}
	if r.Concentration > 80 {
		insights = append(insights, fmt.Sprintf(
			"High category concentration (%.1f%%) suggests specialized ecosystem with limited diversity",
			r.Concentration))
	} else if r.Concentration < 60 {
		insights = append(insights, fmt.Sprintf(
			"Balanced category distribution (%.1f%%) indicates diverse, multi-use ecosystem",
			r.Concentration))
	}
	for _, s := range r.Shares {
		if s.Category == "defi" && s.Share > 35 {
			insights = append(insights, "Strong DeFi presence indicates mature financial infrastructure")
		}
		if s.Category == "nft" && s.Share > 25 {
			insights = append(insights, "Significant NFT activity suggests strong creator economy and digital asset adoption")
		}
	}
	return insights
}

func buildContractReport(chain, category string, tf state.Timeframe, contracts []blockspace.Contract) state.ContractReport {
	report := state.ContractReport{
		Chain:     chain,
		Category:  category,
		Timeframe: tf,
	}

	var shares []float64
	for _, c := range contracts {
		name := c.Name
		if name == "" {
			name = c.Project
		}
		report.Contracts = append(report.Contracts, state.ContractInfo{
			Address:    c.Address,
			Name:       name,
			GasFeesUSD: c.GasFeesUSD,
			Share:      c.Share,
		})
		shares = append(shares, c.Share)
	}
	if len(shares) > 0 {
		report.TopContractShare = shares[0]
	}
	report.Concentration = blockspace.Concentration(shares, 5)
	report.KeyInsights = contractInsights(report)
	return report
}

// contractInsights flags dominance patterns in one chain/category pair.
func contractInsights(r state.ContractReport) []string {
	var insights []string

	if r.Concentration > 75 {
		insights = append(insights, fmt.Sprintf(
			"High contract concentration (%.1f%%) indicates market dominated by few major protocols",
			r.Concentration))
	}
	if r.TopContractShare > 30 {
		insights = append(insights, fmt.Sprintf(
			"Top contract commands %.1f%% share, showing strong protocol dominance",
			r.TopContractShare))
	}
	return insights
}

// topCategories picks the n largest categories, skipping unlabeled
// activity.
func topCategories(shares []state.CategoryShare, n int) []string {
	var cats []string
	for _, s := range shares {
		if s.Category == "unlabeled" {
			continue
		}
		cats = append(cats, s.Category)
		if len(cats) == n {
			break
		}
	}
	return cats
}

func categoryPrompt(r state.CategoryReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category gas fee distribution for %s (%s window):\n", r.Chain, r.Timeframe)
	for _, s := range r.Shares {
		fmt.Fprintf(&b, "- %s: %.2f%% ($%.2f)\n", s.Category, s.Share, s.GasFeesUSD)
	}
	fmt.Fprintf(&b, "Top-3 concentration: %.1f%%. Total gas fees: $%.2f.\n", r.Concentration, r.TotalGasFeesUSD)
	b.WriteString("Comment on what this distribution says about the chain's revenue drivers.")
	return b.String()
}
