package normalize

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/funding-rate-ranker/internal/model"
)

func TestNormalize_LinearInvariant(t *testing.T) {
	rates := []float64{0, 0.0001, -0.0003, 0.0008, 0.0125, -0.00000375, 1e-9}

	for _, h := range []uint64{1, 2, 4, 8} {
		for _, r := range rates {
			p, err := Normalize(decimal.NewFromFloat(r), h)
			require.NoError(t, err)

			assert.Equal(t, 2*p.Pct1h, p.Pct2h, "2h for r=%v h=%d", r, h)
			assert.Equal(t, 4*p.Pct1h, p.Pct4h, "4h for r=%v h=%d", r, h)
			assert.Equal(t, 8*p.Pct1h, p.Pct8h, "8h for r=%v h=%d", r, h)
			assert.InDelta(t, (r/float64(h))*100, p.Pct1h, 1e-12, "1h for r=%v h=%d", r, h)
		}
	}
}

func TestNormalize_Unsupported(t *testing.T) {
	for _, h := range []uint64{0, 3, 5, 6, 7, 12, 24} {
		for _, r := range []float64{0, 0.0001, -0.5} {
			_, err := Normalize(decimal.NewFromFloat(r), h)
			assert.True(t, errors.Is(err, ErrUnsupportedInterval), "h=%d r=%v", h, r)
		}
	}
}

func TestNormalize_Scenarios(t *testing.T) {
	tests := []struct {
		name  string
		rate  string
		hours uint64
		want  Projection
	}{
		{
			name:  "BTC eight hourly",
			rate:  "0.0008",
			hours: 8,
			want:  Projection{Pct1h: 0.01, Pct2h: 0.02, Pct4h: 0.04, Pct8h: 0.08},
		},
		{
			name:  "ETH hourly",
			rate:  "0.0002",
			hours: 1,
			want:  Projection{Pct1h: 0.02, Pct2h: 0.04, Pct4h: 0.08, Pct8h: 0.16},
		},
		{
			name:  "negative four hourly",
			rate:  "-0.0004",
			hours: 4,
			want:  Projection{Pct1h: -0.01, Pct2h: -0.02, Pct4h: -0.04, Pct8h: -0.08},
		},
		{
			name:  "two hourly",
			rate:  "0.0006",
			hours: 2,
			want:  Projection{Pct1h: 0.03, Pct2h: 0.06, Pct4h: 0.12, Pct8h: 0.24},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(decimal.RequireFromString(tt.rate), tt.hours)
			require.NoError(t, err)
			assert.InDelta(t, tt.want.Pct1h, got.Pct1h, 1e-12)
			assert.InDelta(t, tt.want.Pct2h, got.Pct2h, 1e-12)
			assert.InDelta(t, tt.want.Pct4h, got.Pct4h, 1e-12)
			assert.InDelta(t, tt.want.Pct8h, got.Pct8h, 1e-12)
		})
	}
}

func TestNormalize_QuotedDigitsRoundOnce(t *testing.T) {
	p, err := Normalize(decimal.RequireFromString("0.0007"), 1)
	require.NoError(t, err)
	assert.Equal(t, 0.07, p.Pct1h)
	assert.Equal(t, 0.56, p.Pct8h)

	p, err = Normalize(decimal.RequireFromString("0.00035"), 1)
	require.NoError(t, err)
	assert.Equal(t, 0.035, p.Pct1h)
}

func TestNormalize_OutOfRange(t *testing.T) {
	for _, s := range []string{"1e400", "-1e400", "1e306"} {
		_, err := Normalize(decimal.RequireFromString(s), 1)
		assert.ErrorIs(t, err, ErrOutOfRange, s)
	}
}

func TestApply(t *testing.T) {
	got, err := Apply(model.RawFundingRate{Exchange: "AsterPerp", Asset: "BTCUSDT", Rate: decimal.RequireFromString("0.0008"), IntervalHours: 8})
	require.NoError(t, err)
	assert.Equal(t, "AsterPerp", got.Exchange)
	assert.Equal(t, "BTCUSDT", got.Asset)
	assert.InDelta(t, 0.08, got.RatePct8h, 1e-12)

	_, err = Apply(model.RawFundingRate{Exchange: "AsterPerp", Asset: "XYZ", Rate: decimal.RequireFromString("0.001"), IntervalHours: 6})
	assert.ErrorIs(t, err, ErrUnsupportedInterval)
	assert.Contains(t, err.Error(), "XYZ")
}

func TestAll_DropsUnprojectable(t *testing.T) {
	raws := []model.RawFundingRate{
		{Exchange: "a", Asset: "BTC", Rate: decimal.RequireFromString("0.0001"), IntervalHours: 8},
		{Exchange: "a", Asset: "ETH", Rate: decimal.RequireFromString("0.0001"), IntervalHours: 3},
		{Exchange: "a", Asset: "SOL", Rate: decimal.RequireFromString("0.0001"), IntervalHours: 1},
		{Exchange: "a", Asset: "HUGE", Rate: decimal.RequireFromString("1e400"), IntervalHours: 8},
	}

	got := All(raws)
	require.Len(t, got, 2)
	assert.Equal(t, "BTC", got[0].Asset)
	assert.Equal(t, "SOL", got[1].Asset)
}
