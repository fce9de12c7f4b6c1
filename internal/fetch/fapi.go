package fetch

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/yourorg/funding-rate-ranker/internal/validation"
)

// premiumIndex is one entry of a Binance-style /fapi/v1/premiumIndex listing.
type premiumIndex struct {
	Symbol          string   `json:"symbol"`
	MarkPrice       rateText `json:"markPrice"`
	IndexPrice      rateText `json:"indexPrice"`
	LastFundingRate rateText `json:"lastFundingRate"`
	NextFundingTime int64    `json:"nextFundingTime"`
	Time            int64    `json:"time"`
}

// fundingInfo is one entry of a Binance-style /fapi/v1/fundingInfo listing.
type fundingInfo struct {
	Symbol               string       `json:"symbol"`
	FundingIntervalHours *json.Number `json:"fundingIntervalHours"`
}

// rateText accepts a JSON string or number and keeps its text. null decodes
// to the empty string, which screening rejects as unparseable.
type rateText string

func (r *rateText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = rateText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*r = rateText(n.String())
	return nil
}

// intervalHours converts a provider interval into candidate form. nil stays
// nil (no metadata); values that are not positive whole hours map to 0 so
// screening reports them as unsupported.
func intervalHours(n *json.Number) *uint64 {
	if n == nil || n.String() == "" {
		return nil
	}
	if h, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
		return validation.Hours(h)
	}
	f, err := n.Float64()
	if err != nil || f <= 0 || f != math.Trunc(f) || f > math.MaxUint32 {
		return validation.Hours(0)
	}
	return validation.Hours(uint64(f))
}

// joinFundingInfo inner-joins rates with interval metadata by symbol. When
// fallback is non-nil, symbols without metadata use it instead of missing
// the join.
func joinFundingInfo(exchange string, rates []premiumIndex, infos []fundingInfo, fallback *uint64) []validation.Candidate {
	bySymbol := make(map[string]*uint64, len(infos))
	for _, info := range infos {
		if h := intervalHours(info.FundingIntervalHours); h != nil {
			bySymbol[info.Symbol] = h
		}
	}

	candidates := make([]validation.Candidate, 0, len(rates))
	for _, rate := range rates {
		hours, ok := bySymbol[rate.Symbol]
		if !ok {
			hours = fallback
		}
		candidates = append(candidates, validation.Candidate{
			Exchange:      exchange,
			Asset:         rate.Symbol,
			Rate:          string(rate.LastFundingRate),
			IntervalHours: hours,
			NextFundingMs: rate.NextFundingTime,
		})
	}
	return candidates
}
