package agents

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/mtzanidakis/feescope/internal/state"
)

const editorSystemPrompt = `You are a chief strategy officer specializing in
blockchain competitive intelligence. You turn quantitative analysis into a
strategic narrative: competitive positioning, growth opportunities and risk
mitigation. Be specific, reference the numbers, avoid generic advice.`

// StrategicEditor builds the final synthesis. Every section is computed
// from the accumulated reports; when an LLM is configured it additionally
// writes a narrative over the computed sections.
type StrategicEditor struct {
	registry *Registry
}

func NewStrategicEditor(registry *Registry) *StrategicEditor {
	return &StrategicEditor{registry: registry}
}

func (e *StrategicEditor) Run(ctx context.Context, a state.Analysis) state.Delta {
	if len(a.CategoryReports) == 0 {
		return state.Delta{Errors: []string{"synthesis: no category reports to synthesize"}}
	}

	syn := &state.Synthesis{
		ExecutiveSummary:     executiveSummary(a),
		CompetitiveLandscape: competitiveLandscape(a.CategoryReports),
		CategoryInsights:     categoryPerformance(a.CategoryReports),
		ContractInsights:     contractActivity(a.ContractReports),
		GrowthHypotheses:     growthHypotheses(a.CategoryReports, a.ContractReports),
		Recommendations:      recommendations(a.CategoryReports),
		RiskAssessment:       riskAssessment(a.CategoryReports, a.ContractReports),
		NextSteps:            nextSteps(a.CategoryReports, a.ContractReports),
		CrossChainComparison: crossChainComparison(a.CategoryReports),
		GeneratedAt:          time.Now().UTC(),
	}

	if e.registry.Enabled() {
		if narrative, err := e.registry.Complete(ctx, RoleStrategicEditor, editorSystemPrompt, narrativePrompt(a, syn)); err != nil {
			// The computed synthesis stands without the narrative.
			slog.Warn("synthesis narrative failed", "run_id", a.RunID, "error", err)
		} else {
			syn.Narrative = narrative
		}
	}

	slog.Info("synthesis completed", "run_id", a.RunID,
		"category_reports", len(a.CategoryReports), "contract_reports", len(a.ContractReports))

	return state.Delta{
		Task:      state.TaskDone,
		Synthesis: syn,
		Messages:  []state.Message{note(RoleStrategicEditor, "strategic synthesis completed")},
	}
}

func executiveSummary(a state.Analysis) string {
	leader := a.CategoryReports[0]
	for _, r := range a.CategoryReports[1:] {
		if r.TotalGasFeesUSD > leader.TotalGasFeesUSD {
			leader = r
		}
	}
	topCat, _ := dominantCategory(a.CategoryReports)

	var b strings.Builder
	fmt.Fprintf(&b, "Strategic analysis of %d blockchain ecosystems reveals %s as the market leader with $%.0f in gas fees over the %s window. ",
		len(a.CategoryReports), title(leader.Chain), leader.TotalGasFeesUSD, leader.Timeframe)
	fmt.Fprintf(&b, "%s emerges as the dominant category across chains. ", strings.ToUpper(topCat))
	if a.TrendInsights != "" {
		b.WriteString("Historical trend analysis informs the category focus of this report. ")
	}
	b.WriteString("Contract-level analysis shows varying degrees of protocol concentration, with implications for ecosystem resilience and competitive positioning.")
	return b.String()
}

func competitiveLandscape(reports []state.CategoryReport) string {
	sorted := sortByRevenue(reports)

	var b strings.Builder
	b.WriteString("Competitive landscape ranking:\n")
	for i, r := range sorted {
		fmt.Fprintf(&b, "%d. %s: $%.0f total fees, %s dominance (%.1f%%), concentration %.1f%%\n",
			i+1, title(r.Chain), r.TotalGasFeesUSD, r.TopCategory, r.TopShare, r.Concentration)
	}

	for _, r := range reports {
		switch {
		case shareOf(r, "defi") > 45:
			fmt.Fprintf(&b, "- %s: DeFi specialist with strong financial infrastructure\n", title(r.Chain))
		case shareOf(r, "nft") > 25:
			fmt.Fprintf(&b, "- %s: strong creator economy and digital asset focus\n", title(r.Chain))
		case r.Concentration < 60:
			fmt.Fprintf(&b, "- %s: diversified ecosystem with balanced category distribution\n", title(r.Chain))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func categoryPerformance(reports []state.CategoryReport) []string {
	type agg struct {
		sum, max float64
		count    int
	}
	aggregates := map[string]*agg{}
	for _, r := range reports {
		for _, s := range r.Shares {
			a, ok := aggregates[s.Category]
			if !ok {
				a = &agg{}
				aggregates[s.Category] = a
			}
			a.sum += s.Share
			a.count++
			if s.Share > a.max {
				a.max = s.Share
			}
		}
	}

	categories := make([]string, 0, len(aggregates))
	for c := range aggregates {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		return aggregates[categories[i]].sum/float64(aggregates[categories[i]].count) >
			aggregates[categories[j]].sum/float64(aggregates[categories[j]].count)
	})

	var insights []string
	for _, c := range categories {
		a := aggregates[c]
		insights = append(insights, fmt.Sprintf("%s: average %.1f%% across chains (max %.1f%%)",
			strings.ToUpper(c), a.sum/float64(a.count), a.max))
	}
	if len(categories) > 0 {
		insights = append(insights, fmt.Sprintf("%s dominance suggests mature market with established protocols",
			strings.ToUpper(categories[0])))
	}
	return insights
}

func contractActivity(reports []state.ContractReport) []string {
	if len(reports) == 0 {
		return nil
	}

	var high, balanced int
	for _, r := range reports {
		if r.Concentration > 75 {
			high++
		}
		if r.Concentration <= 60 {
			balanced++
		}
	}

	insights := []string{
		fmt.Sprintf("High protocol concentration (>75%%) in %d of %d chain/category combinations", high, len(reports)),
		fmt.Sprintf("Balanced distribution (<=60%%) in %d of %d chain/category combinations", balanced, len(reports)),
	}

	type leader struct {
		chain, category, name string
		share                 float64
	}
	var leaders []leader
	for _, r := range reports {
		if len(r.Contracts) > 0 {
			leaders = append(leaders, leader{r.Chain, r.Category, r.Contracts[0].Name, r.Contracts[0].Share})
		}
	}
	sort.Slice(leaders, func(i, j int) bool { return leaders[i].share > leaders[j].share })
	if len(leaders) > 5 {
		leaders = leaders[:5]
	}
	for _, l := range leaders {
		name := l.name
		if name == "" {
			name = "Anonymous"
		}
		insights = append(insights, fmt.Sprintf("%s (%s/%s): %.1f%% market share", name, l.chain, l.category, l.share))
	}
	return insights
}

func growthHypotheses(categories []state.CategoryReport, contracts []state.ContractReport) []string {
	var hypotheses []string

	var diverse []string
	for _, r := range categories {
		if r.Concentration < 65 {
			diverse = append(diverse, r.Chain)
		}
	}
	if len(diverse) > 0 {
		hypotheses = append(hypotheses, fmt.Sprintf(
			"Diversified ecosystems (%s) show resilience and multi-use adoption patterns, suggesting sustainable growth potential",
			strings.Join(diverse, ", ")))
	}

	var defiLeaders []string
	for _, r := range categories {
		if shareOf(r, "defi") > 40 {
			defiLeaders = append(defiLeaders, r.Chain)
		}
	}
	if len(defiLeaders) > 0 {
		hypotheses = append(hypotheses, fmt.Sprintf(
			"Strong DeFi presence in %s indicates institutional adoption readiness and financial infrastructure maturity",
			strings.Join(defiLeaders, ", ")))
	}

	for _, r := range contracts {
		if r.TopContractShare > 30 {
			hypotheses = append(hypotheses,
				"High protocol concentration suggests winner-take-all dynamics in certain categories, creating moat opportunities for dominant players")
			break
		}
	}
	return hypotheses
}

func recommendations(reports []state.CategoryReport) []string {
	var recs []string

	least := reports[0]
	for _, r := range reports[1:] {
		if r.Concentration < least.Concentration {
			least = r
		}
	}
	recs = append(recs, fmt.Sprintf(
		"Consider %s for diversified market entry due to balanced ecosystem (%.1f%% concentration)",
		least.Chain, least.Concentration))

	// Lowest-share labeled category is the first-mover opportunity.
	var oppChain, oppCat string
	oppShare := 10.0
	for _, r := range reports {
		for _, s := range r.Shares {
			if s.Category == "unlabeled" || s.Category == "token_transfers" {
				continue
			}
			if s.Share < oppShare {
				oppChain, oppCat, oppShare = r.Chain, s.Category, s.Share
			}
		}
	}
	if oppCat != "" {
		recs = append(recs, fmt.Sprintf(
			"Target %s category on %s (%.1f%% current share) for first-mover advantage",
			oppCat, oppChain, oppShare))
	}

	var risky []string
	for _, r := range reports {
		if r.Concentration > 80 {
			risky = append(risky, r.Chain)
		}
	}
	if len(risky) > 0 {
		recs = append(recs, fmt.Sprintf(
			"Implement diversification strategies for exposure to %s due to high category concentration risk",
			strings.Join(risky, ", ")))
	}
	return recs
}

func riskAssessment(categories []state.CategoryReport, contracts []state.ContractReport) []string {
	var risks []string
	for _, r := range categories {
		if r.Concentration > 80 {
			risks = append(risks, fmt.Sprintf(
				"%s: %.1f%% concentration in top 3 categories creates ecosystem vulnerability",
				r.Chain, r.Concentration))
		}
	}
	for _, r := range contracts {
		if r.Concentration > 80 {
			risks = append(risks, fmt.Sprintf(
				"%s/%s: %.1f%% concentration in top contracts", r.Chain, r.Category, r.Concentration))
		}
	}
	risks = append(risks,
		"Mitigation: diversify across blockchains and categories, monitor protocol concentration trends, keep exposure to emerging protocols")
	return risks
}

func nextSteps(categories []state.CategoryReport, contracts []state.ContractReport) []string {
	steps := []string{
		"Implement continuous monitoring of gas fees and category distributions across analyzed blockchains",
	}

	leader := categories[0]
	for _, r := range categories[1:] {
		if r.TotalGasFeesUSD > leader.TotalGasFeesUSD {
			leader = r
		}
	}
	steps = append(steps, fmt.Sprintf(
		"Deep-dive analysis of %s ecosystem protocols for partnership opportunities", leader.Chain))
	steps = append(steps, "Develop diversified portfolio allocation model based on category concentration analysis")

	dominant := map[string]bool{}
	for _, r := range contracts {
		if len(r.Contracts) > 0 && r.TopContractShare > 25 && r.Contracts[0].Name != "" {
			dominant[r.Contracts[0].Name] = true
		}
	}
	if len(dominant) > 0 {
		names := make([]string, 0, len(dominant))
		for n := range dominant {
			names = append(names, n)
		}
		sort.Strings(names)
		steps = append(steps, fmt.Sprintf("Competitive analysis of dominant protocols: %s", strings.Join(names, ", ")))
	}
	return steps
}

func crossChainComparison(reports []state.CategoryReport) string {
	sorted := sortByRevenue(reports)

	var b strings.Builder
	b.WriteString("Revenue performance ranking:\n")
	for i, r := range sorted {
		fmt.Fprintf(&b, "%d. %s: $%.0f\n", i+1, title(r.Chain), r.TotalGasFeesUSD)
	}
	b.WriteString("Ecosystem specializations:\n")
	for _, r := range reports {
		fmt.Fprintf(&b, "- %s: %s specialist (%.1f%%)\n", title(r.Chain), r.TopCategory, r.TopShare)
	}
	return strings.TrimRight(b.String(), "\n")
}

func narrativePrompt(a state.Analysis, syn *state.Synthesis) string {
	var b strings.Builder
	b.WriteString("Write a strategic narrative over this computed blockchain revenue analysis.\n\n")
	fmt.Fprintf(&b, "Executive summary: %s\n\n", syn.ExecutiveSummary)
	fmt.Fprintf(&b, "Competitive landscape:\n%s\n\n", syn.CompetitiveLandscape)
	if len(syn.CategoryInsights) > 0 {
		fmt.Fprintf(&b, "Category insights:\n- %s\n\n", strings.Join(syn.CategoryInsights, "\n- "))
	}
	if len(syn.ContractInsights) > 0 {
		fmt.Fprintf(&b, "Contract insights:\n- %s\n\n", strings.Join(syn.ContractInsights, "\n- "))
	}
	if a.TrendInsights != "" {
		fmt.Fprintf(&b, "Trend insights:\n%s\n\n", a.TrendInsights)
	}
	b.WriteString("Synthesize these findings into a cohesive strategic assessment for an executive audience.")
	return b.String()
}

func dominantCategory(reports []state.CategoryReport) (string, float64) {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, r := range reports {
		for _, s := range r.Shares {
			sums[s.Category] += s.Share
			counts[s.Category]++
		}
	}
	var top string
	var topAvg float64
	for c, sum := range sums {
		if avg := sum / float64(counts[c]); avg > topAvg {
			top, topAvg = c, avg
		}
	}
	return top, topAvg
}

func sortByRevenue(reports []state.CategoryReport) []state.CategoryReport {
	sorted := append([]state.CategoryReport(nil), reports...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TotalGasFeesUSD > sorted[j].TotalGasFeesUSD })
	return sorted
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func shareOf(r state.CategoryReport, category string) float64 {
	for _, s := range r.Shares {
		if s.Category == category {
			return s.Share
		}
	}
	return 0
}
