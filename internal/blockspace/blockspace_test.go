package blockspace

import (
	"os"
	"path/filepath"
	"testing"
)

const fixture = `{
  "data": {
    "chains": {
      "base": {
        "overview": {
          "types": ["gas_fees_share_usd", "gas_fees_absolute_usd", "txcount_absolute"],
          "7d": {
            "defi": {
              "data": [0.45, 450000, 120000],
              "contracts": {
                "types": ["project_name", "address", "name", "main_category_key", "sub_category_key", "chain", "gas_fees_absolute_eth", "gas_fees_absolute_usd", "txcount_absolute"],
                "data": [
                  ["uniswap", "0xaaa", "Uniswap V3", "defi", "dex", "base", 12.5, 300000, 80000],
                  ["aerodrome", "0xbbb", "Aerodrome", "defi", "dex", "base", 6.0, 150000, 40000],
                  ["other-dex", "0xccc", "OtherDex", "defi", "dex", "arbitrum", 4.0, 100000, 9000]
                ]
              }
            },
            "nft": {
              "data": [0.30, 300000, 60000],
              "contracts": {
                "types": ["project_name", "address", "name", "main_category_key", "sub_category_key", "chain", "gas_fees_absolute_eth", "gas_fees_absolute_usd", "txcount_absolute"],
                "data": [
                  ["zora", "0xddd", "Zora", "nft", "marketplace", "base", 2.0, 50000, 15000]
                ]
              }
            },
            "unlabeled": {
              "data": [0.25, 250000, 50000]
            }
          },
          "30d": {
            "defi": {
              "data": [0.60, 1800000, 500000]
            }
          }
        }
      },
      "mantle": {
        "overview": {
          "types": ["gas_fees_share_usd", "gas_fees_absolute_usd", "txcount_absolute"],
          "7d": {
            "defi": {
              "data": [1.0, 90000, 30000]
            }
          }
        }
      }
    }
  }
}`

func loadFixture(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blockspace.json")
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load("/nonexistent/blockspace.json"); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(path, []byte(`{"data":{"chains":{}}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for empty chains")
	}
}

func TestChains(t *testing.T) {
	s := loadFixture(t)

	chains := s.Chains()
	if len(chains) != 2 || chains[0] != "base" || chains[1] != "mantle" {
		t.Errorf("expected [base mantle], got %v", chains)
	}
	if !s.HasChain("base") || s.HasChain("solana") {
		t.Error("HasChain mismatch")
	}
}

func TestTimeframes(t *testing.T) {
	s := loadFixture(t)

	tfs, err := s.Timeframes("base")
	if err != nil {
		t.Fatal(err)
	}
	if len(tfs) != 2 || tfs[0] != "30d" || tfs[1] != "7d" {
		t.Errorf("expected [30d 7d], got %v", tfs)
	}

	if _, err := s.Timeframes("solana"); err == nil {
		t.Error("expected error for unknown chain")
	}
}

func TestCategoryShares(t *testing.T) {
	s := loadFixture(t)

	shares, err := s.CategoryShares("base", "7d")
	if err != nil {
		t.Fatal(err)
	}
	if len(shares) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(shares))
	}
	if shares[0].Category != "defi" || shares[0].Share != 45 {
		t.Errorf("expected defi at 45%%, got %s at %v", shares[0].Category, shares[0].Share)
	}
	if shares[0].GasFeesUSD != 450000 {
		t.Errorf("expected 450000 usd, got %v", shares[0].GasFeesUSD)
	}
	if shares[1].Category != "nft" || shares[2].Category != "unlabeled" {
		t.Errorf("expected descending share order, got %v", shares)
	}

	if _, err := s.CategoryShares("base", "90d"); err == nil {
		t.Error("expected error for missing window")
	}
	if _, err := s.CategoryShares("solana", "7d"); err == nil {
		t.Error("expected error for unknown chain")
	}
}

func TestTopContracts(t *testing.T) {
	s := loadFixture(t)

	contracts, err := s.TopContracts("base", "7d", 10, "defi")
	if err != nil {
		t.Fatal(err)
	}
	// The arbitrum row is filtered out by chain.
	if len(contracts) != 2 {
		t.Fatalf("expected 2 contracts, got %d", len(contracts))
	}
	if contracts[0].Name != "Uniswap V3" || contracts[0].GasFeesUSD != 300000 {
		t.Errorf("expected Uniswap V3 first, got %+v", contracts[0])
	}
	// 300000 of 450000 total.
	if contracts[0].Share != 66.67 {
		t.Errorf("expected top share 66.67, got %v", contracts[0].Share)
	}
	if contracts[1].Share != 33.33 {
		t.Errorf("expected second share 33.33, got %v", contracts[1].Share)
	}

	// No category filter spans categories.
	all, err := s.TopContracts("base", "7d", 10, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 contracts across categories, got %d", len(all))
	}

	// topN truncates after sorting.
	top1, err := s.TopContracts("base", "7d", 1, "defi")
	if err != nil {
		t.Fatal(err)
	}
	if len(top1) != 1 || top1[0].Share != 100 {
		t.Errorf("expected single contract at 100%%, got %+v", top1)
	}

	if _, err := s.TopContracts("base", "7d", 10, "cefi"); err == nil {
		t.Error("expected error for empty category")
	}
}

func TestConcentration(t *testing.T) {
	shares := []float64{45, 30, 15, 10}
	if got := Concentration(shares, 3); got != 90 {
		t.Errorf("expected 90, got %v", got)
	}
	if got := Concentration(shares, 10); got != 100 {
		t.Errorf("expected clamp to all shares, got %v", got)
	}
	if got := Concentration(nil, 5); got != 0 {
		t.Errorf("expected 0 for empty, got %v", got)
	}
}
