// Package dataset reads the growthepie CSV cache used for trend analysis.
// Files carry a timestamp in their name; trend analysis compares the two
// most recent captures in chronological order.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Summary describes one cached dataset.
type Summary struct {
	Filename        string    `json:"filename"`
	CapturedAt      time.Time `json:"captured_at"`
	Rows            int       `json:"rows"`
	Chains          []string  `json:"chains"`
	Categories      []string  `json:"categories"`
	TotalGasFeesUSD float64   `json:"total_gas_fees_usd"`
}

var timestampRe = regexp.MustCompile(`(\d{8})[_-]?(\d{6})`)

// LatestPair returns summaries of the two most recent datasets in the cache
// directory, earlier first. Trend analysis needs exactly two captures.
func LatestPair(dir string) (earlier, latter Summary, err error) {
	files, err := listByCapture(dir)
	if err != nil {
		return Summary{}, Summary{}, err
	}
	if len(files) < 2 {
		return Summary{}, Summary{}, fmt.Errorf("trend analysis needs 2 cached datasets, found %d in %s", len(files), dir)
	}

	latest := files[len(files)-2:]
	earlier, err = Summarize(filepath.Join(dir, latest[0].name))
	if err != nil {
		return Summary{}, Summary{}, err
	}
	latter, err = Summarize(filepath.Join(dir, latest[1].name))
	if err != nil {
		return Summary{}, Summary{}, err
	}
	return earlier, latter, nil
}

// Summarize loads one cached CSV and computes its summary.
func Summarize(path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return Summary{}, fmt.Errorf("read dataset %s: %w", filepath.Base(path), err)
	}
	if len(records) < 2 {
		return Summary{}, fmt.Errorf("dataset %s has no data rows", filepath.Base(path))
	}

	header := records[0]
	chainIdx := headerIndex(header, "origin_key", "chain", "blockchain")
	catIdx := headerIndex(header, "main_category_key", "category")
	feesIdx := headerIndex(header, "gas_fees_usd", "gas_fees_absolute_usd")

	sum := Summary{
		Filename:   filepath.Base(path),
		CapturedAt: captureTime(filepath.Base(path)),
		Rows:       len(records) - 1,
	}

	chains := map[string]bool{}
	categories := map[string]bool{}
	for _, row := range records[1:] {
		if v := field(row, chainIdx); v != "" {
			chains[v] = true
		}
		if v := field(row, catIdx); v != "" {
			categories[v] = true
		}
		if v := field(row, feesIdx); v != "" {
			if fees, err := strconv.ParseFloat(v, 64); err == nil {
				sum.TotalGasFeesUSD += fees
			}
		}
	}
	sum.Chains = sortedKeys(chains)
	sum.Categories = sortedKeys(categories)
	return sum, nil
}

// Describe renders a summary as prompt context.
func (s Summary) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset %s", s.Filename)
	if !s.CapturedAt.IsZero() {
		fmt.Fprintf(&b, " (captured %s)", s.CapturedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&b, ": %d rows", s.Rows)
	if len(s.Chains) > 0 {
		fmt.Fprintf(&b, ", chains: %s", strings.Join(s.Chains, ", "))
	}
	if len(s.Categories) > 0 {
		fmt.Fprintf(&b, ", categories: %s", strings.Join(s.Categories, ", "))
	}
	if s.TotalGasFeesUSD > 0 {
		fmt.Fprintf(&b, ", total gas fees $%.2f", s.TotalGasFeesUSD)
	}
	return b.String()
}

type cacheFile struct {
	name       string
	capturedAt time.Time
}

func listByCapture(dir string) ([]cacheFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dataset cache: %w", err)
	}

	var files []cacheFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		cf := cacheFile{name: e.Name(), capturedAt: captureTime(e.Name())}
		if cf.capturedAt.IsZero() {
			if info, err := e.Info(); err == nil {
				cf.capturedAt = info.ModTime()
			}
		}
		files = append(files, cf)
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].capturedAt.Equal(files[j].capturedAt) {
			return files[i].name < files[j].name
		}
		return files[i].capturedAt.Before(files[j].capturedAt)
	})
	return files, nil
}

// captureTime extracts an embedded YYYYMMDD[_-]HHMMSS timestamp from a
// filename. Zero when the name carries none.
func captureTime(name string) time.Time {
	m := timestampRe.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}
	}
	t, err := time.Parse("20060102150405", m[1]+m[2])
	if err != nil {
		return time.Time{}
	}
	return t
}

func headerIndex(header []string, names ...string) int {
	for _, n := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), n) {
				return i
			}
		}
	}
	return -1
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
