package state

import "time"

// CategoryShare is one category's slice of a chain's gas fee revenue.
type CategoryShare struct {
	Category   string  `json:"category"`
	Share      float64 `json:"share"`
	GasFeesUSD float64 `json:"gas_fees_usd"`
}

// CategoryReport summarises the revenue distribution across blockspace
// categories for a single chain.
type CategoryReport struct {
	Chain           string          `json:"chain"`
	Timeframe       Timeframe       `json:"timeframe"`
	TopCategory     string          `json:"top_category"`
	TopShare        float64         `json:"top_share"`
	Shares          []CategoryShare `json:"shares"`
	TotalGasFeesUSD float64         `json:"total_gas_fees_usd"`
	// Concentration is the combined share of the top three categories.
	Concentration float64  `json:"concentration"`
	KeyInsights   []string `json:"key_insights,omitempty"`
	Commentary    string   `json:"commentary,omitempty"`
}

// ContractInfo is one contract's revenue contribution within a category.
type ContractInfo struct {
	Address    string  `json:"address"`
	Name       string  `json:"name"`
	GasFeesUSD float64 `json:"gas_fees_usd"`
	Share      float64 `json:"share"`
}

// ContractReport lists the top revenue contracts of one chain and category.
type ContractReport struct {
	Chain            string         `json:"chain"`
	Category         string         `json:"category"`
	Timeframe        Timeframe      `json:"timeframe"`
	Contracts        []ContractInfo `json:"contracts"`
	TopContractShare float64        `json:"top_contract_share"`
	// Concentration is the combined share of the top five contracts.
	Concentration float64  `json:"concentration"`
	KeyInsights   []string `json:"key_insights,omitempty"`
}

// TrendAnalysis compares the two latest cached datasets in chronological
// order.
type TrendAnalysis struct {
	EarlierFile     string    `json:"earlier_file"`
	LatterFile      string    `json:"latter_file"`
	EarlierOverview string    `json:"earlier_overview"`
	LatterOverview  string    `json:"latter_overview"`
	Comparison      string    `json:"comparison"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// Synthesis is the final strategic report.
type Synthesis struct {
	ExecutiveSummary     string    `json:"executive_summary"`
	CompetitiveLandscape string    `json:"competitive_landscape"`
	CategoryInsights     []string  `json:"category_insights,omitempty"`
	ContractInsights     []string  `json:"contract_insights,omitempty"`
	GrowthHypotheses     []string  `json:"growth_hypotheses,omitempty"`
	Recommendations      []string  `json:"recommendations,omitempty"`
	RiskAssessment       []string  `json:"risk_assessment,omitempty"`
	NextSteps            []string  `json:"next_steps,omitempty"`
	CrossChainComparison string    `json:"cross_chain_comparison,omitempty"`
	Narrative            string    `json:"narrative,omitempty"`
	GeneratedAt          time.Time `json:"generated_at"`
}
