// Package validation screens per-asset funding candidates before normalization.
// Every rejected candidate carries a named reason so each filtering rule can be
// observed and tested on its own.
package validation

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/funding-rate-ranker/internal/model"
	"github.com/yourorg/funding-rate-ranker/internal/normalize"
)

// SkipReason names why a candidate was excluded.
type SkipReason string

// Skip reasons
const (
	// SkipJoinMiss: the asset had a rate but no interval metadata
	SkipJoinMiss SkipReason = "join_miss"

	// SkipParseFailure: the rate text is not a finite number
	SkipParseFailure SkipReason = "parse_failure"

	// SkipUnsupportedInterval: the interval is not 1, 2, 4 or 8 hours
	SkipUnsupportedInterval SkipReason = "unsupported_interval"
)

// Reasons lists every skip reason in a stable order.
var Reasons = []SkipReason{SkipJoinMiss, SkipParseFailure, SkipUnsupportedInterval}

// Candidate is an adapter's unscreened view of one asset.
type Candidate struct {
	Exchange string
	Asset    string

	// Rate is the provider-supplied rate text
	Rate string

	// IntervalHours is nil when the source had no interval for the asset
	IntervalHours *uint64

	// NextFundingMs is the next settlement in Unix milliseconds, 0 if unknown
	NextFundingMs int64
}

// Hours is a helper for building candidates with a known interval.
func Hours(h uint64) *uint64 {
	return &h
}

// Skip records one rejected candidate.
type Skip struct {
	Candidate
	Reason SkipReason
}

// Tally counts skips per reason.
type Tally map[SkipReason]int

// Add merges other into t.
func (t Tally) Add(other Tally) {
	for reason, n := range other {
		t[reason] += n
	}
}

// Total returns the number of skipped candidates.
func (t Tally) Total() int {
	total := 0
	for _, n := range t {
		total += n
	}
	return total
}

// Check applies the screening rules to one candidate. The reason is empty when
// the candidate passes.
func Check(c Candidate) (model.RawFundingRate, SkipReason) {
	if c.IntervalHours == nil {
		return model.RawFundingRate{}, SkipJoinMiss
	}

	rate, ok := ParseRate(c.Rate)
	if !ok {
		return model.RawFundingRate{}, SkipParseFailure
	}

	if !normalize.SupportedInterval(*c.IntervalHours) {
		return model.RawFundingRate{}, SkipUnsupportedInterval
	}

	raw := model.RawFundingRate{
		Exchange:      c.Exchange,
		Asset:         c.Asset,
		Rate:          rate,
		IntervalHours: *c.IntervalHours,
	}
	if c.NextFundingMs > 0 {
		raw.NextFundingTime = time.UnixMilli(c.NextFundingMs).UTC()
	}
	return raw, ""
}

// maxRateExponent bounds the decimal exponent of an accepted rate. Anything
// outside it is not a funding rate and would make decimal arithmetic expensive.
const maxRateExponent = 64

// ParseRate parses a provider rate string such as "0.00010000" or "-1.2e-5".
// Rates that do not fit a finite float64 are rejected.
func ParseRate(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if exp := d.Exponent(); exp > maxRateExponent || exp < -maxRateExponent {
		return decimal.Zero, false
	}
	if f := d.InexactFloat64(); math.IsInf(f, 0) || math.IsNaN(f) {
		return decimal.Zero, false
	}
	return d, true
}

// Screen splits candidates into accepted raw rates and skips, preserving input order.
func Screen(candidates []Candidate) ([]model.RawFundingRate, []Skip) {
	accepted := make([]model.RawFundingRate, 0, len(candidates))
	var skipped []Skip

	for _, c := range candidates {
		raw, reason := Check(c)
		if reason != "" {
			logrus.WithFields(logrus.Fields{
				"exchange": c.Exchange,
				"asset":    c.Asset,
				"rate":     c.Rate,
				"reason":   reason,
			}).Debug("Skipped funding candidate")
			skipped = append(skipped, Skip{Candidate: c, Reason: reason})
			continue
		}
		accepted = append(accepted, raw)
	}

	if len(skipped) > 0 {
		logrus.WithFields(logrus.Fields{
			"total":    len(candidates),
			"accepted": len(accepted),
			"skipped":  len(skipped),
		}).Debug("Screening complete")
	}

	return accepted, skipped
}

// TallySkips counts skips by reason.
func TallySkips(skips []Skip) Tally {
	t := Tally{}
	for _, s := range skips {
		t[s.Reason]++
	}
	return t
}

// SortedReasons returns the reasons present in t in a stable order.
func (t Tally) SortedReasons() []SkipReason {
	reasons := make([]SkipReason, 0, len(t))
	for r := range t {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	return reasons
}
