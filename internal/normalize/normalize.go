// Package normalize projects native-interval funding rates onto the common
// 1h/2h/4h/8h horizons.
package normalize

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/funding-rate-ranker/internal/model"
)

// ErrUnsupportedInterval is returned for native intervals other than 1, 2, 4 or 8 hours.
var ErrUnsupportedInterval = errors.New("unsupported funding interval")

// ErrOutOfRange is returned when a projected percentage does not fit a finite float64.
var ErrOutOfRange = errors.New("funding rate out of range")

var hundred = decimal.NewFromInt(100)

// Projection holds a rate expressed as percentages over the four horizons.
type Projection struct {
	Pct1h float64
	Pct2h float64
	Pct4h float64
	Pct8h float64
}

// SupportedInterval reports whether hours is a native interval the engine accepts.
func SupportedInterval(hours uint64) bool {
	switch hours {
	case 1, 2, 4, 8:
		return true
	}
	return false
}

// Normalize treats rate as the fraction paid over exactly hours hours and
// returns the linear per-horizon percentages. Funding is projected, not
// compounded: the 1h figure is rate/hours*100 and the others are 2x, 4x and 8x it.
func Normalize(rate decimal.Decimal, hours uint64) (Projection, error) {
	if !SupportedInterval(hours) {
		return Projection{}, fmt.Errorf("%w: %dh", ErrUnsupportedInterval, hours)
	}

	// The quoted digits are scaled exactly and rounded once, so "0.0007" over
	// 1h is 0.07 and not 0.06999999999999999. The power-of-two multiples are exact.
	oneHour := rate.
		Mul(hundred).
		Div(decimal.NewFromInt(int64(hours))).
		InexactFloat64()
	if math.IsInf(oneHour*8, 0) || math.IsNaN(oneHour) {
		return Projection{}, fmt.Errorf("%w: %s over %dh", ErrOutOfRange, rate, hours)
	}

	return Projection{
		Pct1h: oneHour,
		Pct2h: oneHour * 2,
		Pct4h: oneHour * 4,
		Pct8h: oneHour * 8,
	}, nil
}

// Apply normalizes one raw record into its comparable form.
func Apply(raw model.RawFundingRate) (model.FundingRate, error) {
	p, err := Normalize(raw.Rate, raw.IntervalHours)
	if err != nil {
		return model.FundingRate{}, fmt.Errorf("%s %s: %w", raw.Exchange, raw.Asset, err)
	}
	return model.FundingRate{
		Exchange:  raw.Exchange,
		Asset:     raw.Asset,
		RatePct1h: p.Pct1h,
		RatePct2h: p.Pct2h,
		RatePct4h: p.Pct4h,
		RatePct8h: p.Pct8h,
	}, nil
}

// All normalizes a batch, dropping records that cannot be projected.
func All(raws []model.RawFundingRate) []model.FundingRate {
	out := make([]model.FundingRate, 0, len(raws))
	for _, raw := range raws {
		rate, err := Apply(raw)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"exchange": raw.Exchange,
				"asset":    raw.Asset,
				"interval": raw.IntervalHours,
			}).WithError(err).Debug("Skipped record that cannot be normalized")
			continue
		}
		out = append(out, rate)
	}
	return out
}
