package state

import "fmt"

// Timeframe is an analysis window. The historical and trend windows route
// through the trend analyst and pin data lookups to the 7d window.
type Timeframe string

const (
	Timeframe1d         Timeframe = "1d"
	Timeframe7d         Timeframe = "7d"
	Timeframe30d        Timeframe = "30d"
	TimeframeHistorical Timeframe = "historical"
	TimeframeTrend      Timeframe = "trend"
)

var timeframes = map[Timeframe]bool{
	Timeframe1d:         true,
	Timeframe7d:         true,
	Timeframe30d:        true,
	TimeframeHistorical: true,
	TimeframeTrend:      true,
}

func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if !timeframes[tf] {
		return "", fmt.Errorf("unsupported timeframe %q (want 1d, 7d, 30d, historical or trend)", s)
	}
	return tf, nil
}

// NeedsTrend reports whether the timeframe requires trend analysis.
func (t Timeframe) NeedsTrend() bool {
	return t == TimeframeHistorical || t == TimeframeTrend
}

// DataTimeframe is the window used for blockspace lookups. Trend-oriented
// timeframes have no direct window of their own.
func (t Timeframe) DataTimeframe() Timeframe {
	if t.NeedsTrend() {
		return Timeframe7d
	}
	return t
}
