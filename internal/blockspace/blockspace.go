// Package blockspace reads the growthepie blockspace dataset: per-chain gas
// fee revenue broken down by category and contract.
package blockspace

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
)

// CategoryShare is one category's slice of a chain's gas fees, share in
// percent of the chain total.
type CategoryShare struct {
	Category   string
	Share      float64
	GasFeesUSD float64
	TxCount    float64
}

// Contract is one contract row, share in percent of the returned set.
type Contract struct {
	Project     string
	Address     string
	Name        string
	Category    string
	SubCategory string
	Chain       string
	GasFeesETH  float64
	GasFeesUSD  float64
	TxCount     float64
	Share       float64
}

type categoryEntry struct {
	Data      []*float64      `json:"data"`
	Contracts *contractsBlock `json:"contracts"`
}

type contractsBlock struct {
	Types []string `json:"types"`
	Data  [][]any  `json:"data"`
}

type chainEntry struct {
	Overview map[string]json.RawMessage `json:"overview"`
}

type dataFile struct {
	Data struct {
		Chains map[string]chainEntry `json:"chains"`
	} `json:"data"`
}

// Store holds a parsed blockspace file.
type Store struct {
	chains map[string]chainEntry
}

func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blockspace data: %w", err)
	}

	var f dataFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse blockspace data: %w", err)
	}
	if len(f.Data.Chains) == 0 {
		return nil, fmt.Errorf("blockspace data has no chains: %s", path)
	}

	return &Store{chains: f.Data.Chains}, nil
}

// Chains lists the chains present in the dataset, sorted.
func (s *Store) Chains() []string {
	chains := make([]string, 0, len(s.chains))
	for name := range s.chains {
		chains = append(chains, name)
	}
	sort.Strings(chains)
	return chains
}

// HasChain reports whether the dataset covers a chain.
func (s *Store) HasChain(chain string) bool {
	_, ok := s.chains[chain]
	return ok
}

// Timeframes lists the data windows available for a chain, sorted.
func (s *Store) Timeframes(chain string) ([]string, error) {
	entry, ok := s.chains[chain]
	if !ok {
		return nil, fmt.Errorf("unknown chain %q", chain)
	}

	var tfs []string
	for key := range entry.Overview {
		if key == "types" {
			continue
		}
		tfs = append(tfs, key)
	}
	sort.Strings(tfs)
	return tfs, nil
}

// CategoryShares returns the category revenue distribution for a chain and
// timeframe, sorted by share descending. Shares are percentages.
func (s *Store) CategoryShares(chain, timeframe string) ([]CategoryShare, error) {
	entry, ok := s.chains[chain]
	if !ok {
		return nil, fmt.Errorf("unknown chain %q", chain)
	}

	types, err := s.overviewTypes(entry, chain)
	if err != nil {
		return nil, err
	}

	raw, ok := entry.Overview[timeframe]
	if !ok {
		return nil, fmt.Errorf("chain %q has no %q window", chain, timeframe)
	}

	var categories map[string]categoryEntry
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil, fmt.Errorf("parse %s/%s categories: %w", chain, timeframe, err)
	}

	shareIdx := indexOf(types, "gas_fees_share_usd")
	feesIdx := indexOf(types, "gas_fees_absolute_usd")
	txIdx := indexOf(types, "txcount_absolute")
	if shareIdx < 0 {
		return nil, fmt.Errorf("chain %q overview has no gas_fees_share_usd column", chain)
	}

	var shares []CategoryShare
	for name, cat := range categories {
		if name == "types" || len(cat.Data) == 0 {
			continue
		}
		cs := CategoryShare{
			Category: name,
			Share:    round2(column(cat.Data, shareIdx) * 100),
		}
		if feesIdx >= 0 {
			cs.GasFeesUSD = column(cat.Data, feesIdx)
		}
		if txIdx >= 0 {
			cs.TxCount = column(cat.Data, txIdx)
		}
		shares = append(shares, cs)
	}
	if len(shares) == 0 {
		return nil, fmt.Errorf("no category data for %s/%s", chain, timeframe)
	}

	sort.Slice(shares, func(i, j int) bool { return shares[i].Share > shares[j].Share })
	return shares, nil
}

// TopContracts returns the top contracts of a chain by absolute USD gas
// fees, optionally filtered by main category. Shares are percentages of the
// returned set's total.
func (s *Store) TopContracts(chain, timeframe string, topN int, category string) ([]Contract, error) {
	entry, ok := s.chains[chain]
	if !ok {
		return nil, fmt.Errorf("unknown chain %q", chain)
	}

	raw, ok := entry.Overview[timeframe]
	if !ok {
		return nil, fmt.Errorf("chain %q has no %q window", chain, timeframe)
	}

	var categories map[string]categoryEntry
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil, fmt.Errorf("parse %s/%s categories: %w", chain, timeframe, err)
	}

	var contracts []Contract
	for name, cat := range categories {
		if name == "types" || cat.Contracts == nil {
			continue
		}
		for _, row := range cat.Contracts.Data {
			c := parseContract(cat.Contracts.Types, row)
			if c.Chain != "" && c.Chain != chain {
				continue
			}
			if category != "" && c.Category != category {
				continue
			}
			contracts = append(contracts, c)
		}
	}
	if len(contracts) == 0 {
		return nil, fmt.Errorf("no contracts for %s/%s category %q", chain, timeframe, category)
	}

	sort.Slice(contracts, func(i, j int) bool { return contracts[i].GasFeesUSD > contracts[j].GasFeesUSD })
	if topN > 0 && len(contracts) > topN {
		contracts = contracts[:topN]
	}

	var total float64
	for _, c := range contracts {
		total += c.GasFeesUSD
	}
	if total > 0 {
		for i := range contracts {
			contracts[i].Share = round2(contracts[i].GasFeesUSD / total * 100)
		}
	}
	return contracts, nil
}

// Concentration sums the shares of the first k entries. Inputs are sorted
// descending already.
func Concentration(shares []float64, k int) float64 {
	if k > len(shares) {
		k = len(shares)
	}
	var sum float64
	for _, s := range shares[:k] {
		sum += s
	}
	return round2(sum)
}

func (s *Store) overviewTypes(entry chainEntry, chain string) ([]string, error) {
	raw, ok := entry.Overview["types"]
	if !ok {
		return nil, fmt.Errorf("chain %q overview has no types", chain)
	}
	var types []string
	if err := json.Unmarshal(raw, &types); err != nil {
		return nil, fmt.Errorf("parse %s overview types: %w", chain, err)
	}
	return types, nil
}

func parseContract(types []string, row []any) Contract {
	var c Contract
	for i, col := range types {
		if i >= len(row) || row[i] == nil {
			continue
		}
		switch col {
		case "project_name":
			c.Project, _ = row[i].(string)
		case "address":
			c.Address, _ = row[i].(string)
		case "name":
			c.Name, _ = row[i].(string)
		case "main_category_key":
			c.Category, _ = row[i].(string)
		case "sub_category_key":
			c.SubCategory, _ = row[i].(string)
		case "chain":
			c.Chain, _ = row[i].(string)
		case "gas_fees_absolute_eth":
			c.GasFeesETH = toFloat(row[i])
		case "gas_fees_absolute_usd":
			c.GasFeesUSD = toFloat(row[i])
		case "txcount_absolute":
			c.TxCount = toFloat(row[i])
		}
	}
	return c
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}

func column(data []*float64, i int) float64 {
	if i < 0 || i >= len(data) || data[i] == nil {
		return 0
	}
	return *data[i]
}

func toFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
