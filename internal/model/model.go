// Package model defines the core data structures for the funding-rate ranker.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawFundingRate is one asset's funding data as reported by an exchange,
// already screened: the rate is numeric and the interval is supported.
type RawFundingRate struct {
	// Exchange names the venue the rate was quoted on
	Exchange string `json:"exchange"`

	// Asset is the instrument identifier as the exchange spells it
	Asset string `json:"asset"`

	// Rate is the signed fractional funding paid over one native interval,
	// e.g. 0.0001 for 0.01%. It keeps the exchange's quoted digits.
	Rate decimal.Decimal `json:"rate"`

	// IntervalHours is the native settlement interval (1, 2, 4 or 8)
	IntervalHours uint64 `json:"interval_hours"`

	// NextFundingTime is the next settlement, zero when the source omits it
	NextFundingTime time.Time `json:"next_funding_time,omitempty"`
}

// FundingRate is the normalized, comparable view of one asset's funding on
// one exchange. The 2h, 4h and 8h fields are always 2, 4 and 8 times the 1h
// field.
type FundingRate struct {
	Exchange string `json:"exchange"`
	Asset    string `json:"asset"`

	RatePct1h float64 `json:"rate_pct_1h"`
	RatePct2h float64 `json:"rate_pct_2h"`
	RatePct4h float64 `json:"rate_pct_4h"`
	RatePct8h float64 `json:"rate_pct_8h"`
}

// At returns the percentage for the given horizon.
func (f FundingRate) At(h Horizon) float64 {
	switch h {
	case Horizon1h:
		return f.RatePct1h
	case Horizon2h:
		return f.RatePct2h
	case Horizon4h:
		return f.RatePct4h
	default:
		return f.RatePct8h
	}
}

// Horizon selects one of the four projected funding horizons.
type Horizon int

const (
	Horizon1h Horizon = 1
	Horizon2h Horizon = 2
	Horizon4h Horizon = 4
	Horizon8h Horizon = 8
)

// String renders the horizon the way it is configured, e.g. "8h".
func (h Horizon) String() string {
	return fmt.Sprintf("%dh", int(h))
}

// ParseHorizon accepts "1h", "2h", "4h" or "8h" (case-insensitive).
func ParseHorizon(s string) (Horizon, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1h":
		return Horizon1h, nil
	case "2h":
		return Horizon2h, nil
	case "4h":
		return Horizon4h, nil
	case "8h":
		return Horizon8h, nil
	}
	return 0, fmt.Errorf("unsupported horizon %q", s)
}

// Report is the ranked output of one cycle.
type Report struct {
	// Largest holds the highest rates, descending
	Largest []FundingRate `json:"largest"`

	// Smallest holds the lowest rates, ascending
	Smallest []FundingRate `json:"smallest"`

	// Horizon is the key the report was ranked by
	Horizon Horizon `json:"horizon"`

	// Total is the number of records the report was ranked from
	Total int `json:"total"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Empty reports whether the report carries no rates at all.
func (r Report) Empty() bool {
	return len(r.Largest) == 0 && len(r.Smallest) == 0
}
