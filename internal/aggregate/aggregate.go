// Package aggregate merges normalized funding rates from every adapter and
// ranks them.
package aggregate

import (
	"sort"
	"time"

	"github.com/yourorg/funding-rate-ranker/internal/model"
)

// Group is one adapter's normalized output.
type Group struct {
	Source string
	Rates  []model.FundingRate
}

// Merge concatenates every group into one flat collection. The groups are
// not modified.
func Merge(groups []Group) []model.FundingRate {
	total := 0
	for _, g := range groups {
		total += len(g.Rates)
	}

	merged := make([]model.FundingRate, 0, total)
	for _, g := range groups {
		merged = append(merged, g.Rates...)
	}
	return merged
}

// Rank merges groups and returns the n highest and n lowest records by the
// 8h projection.
func Rank(groups []Group, n int) (largest, smallest []model.FundingRate) {
	return RankBy(Merge(groups), model.Horizon8h, n)
}

// RankBy sorts a copy of records ascending by the given horizon and slices
// both ends. smallest is the ascending prefix, largest the descending one;
// each holds min(n, len(records)) entries and they may overlap.
func RankBy(records []model.FundingRate, h model.Horizon, n int) (largest, smallest []model.FundingRate) {
	sorted := Sorted(records, h)
	if n < 0 {
		n = 0
	}
	if n > len(sorted) {
		n = len(sorted)
	}

	smallest = make([]model.FundingRate, n)
	copy(smallest, sorted[:n])

	largest = make([]model.FundingRate, 0, n)
	for i := len(sorted) - 1; i >= len(sorted)-n; i-- {
		largest = append(largest, sorted[i])
	}
	return largest, smallest
}

// Sorted returns a copy of records in ascending order of the horizon value,
// then asset, then exchange.
func Sorted(records []model.FundingRate, h model.Horizon) []model.FundingRate {
	sorted := make([]model.FundingRate, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j], h)
	})
	return sorted
}

func less(a, b model.FundingRate, h model.Horizon) bool {
	if av, bv := a.At(h), b.At(h); av != bv {
		return av < bv
	}
	if a.Asset != b.Asset {
		return a.Asset < b.Asset
	}
	return a.Exchange < b.Exchange
}

// BuildReport ranks groups by the horizon and packages the result.
func BuildReport(groups []Group, h model.Horizon, n int, now time.Time) model.Report {
	merged := Merge(groups)
	largest, smallest := RankBy(merged, h, n)
	return model.Report{
		Largest:     largest,
		Smallest:    smallest,
		Horizon:     h,
		Total:       len(merged),
		GeneratedAt: now.UTC(),
	}
}

// Median returns the median of the selected value, 0 for no records.
func Median(records []model.FundingRate, selector func(model.FundingRate) float64) float64 {
	if len(records) == 0 {
		return 0
	}

	values := make([]float64, 0, len(records))
	for _, r := range records {
		values = append(values, selector(r))
	}

	sort.Float64s(values)
	n := len(values)

	if n%2 == 0 {
		return (values[n/2-1] + values[n/2]) / 2
	}
	return values[n/2]
}

// CountByExchange tallies records per exchange label.
func CountByExchange(records []model.FundingRate) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Exchange]++
	}
	return counts
}
