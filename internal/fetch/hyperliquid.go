package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/funding-rate-ranker/internal/config"
	"github.com/yourorg/funding-rate-ranker/internal/validation"
)

// HyperliquidSource reads predicted funding from Hyperliquid's info endpoint.
// The reply covers Hyperliquid's own perps and several external venues, so
// each record is labelled with the venue it was quoted on.
type HyperliquidSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewHyperliquidSource creates a new Hyperliquid adapter.
func NewHyperliquidSource(cfg config.ExchangeConfig, hc *http.Client) *HyperliquidSource {
	return &HyperliquidSource{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		httpClient: hc,
	}
}

// Name identifies the adapter.
func (s *HyperliquidSource) Name() string { return config.ExchangeHyperliquid }

type infoRequest struct {
	Type string `json:"type"`
}

// Fetch posts a predictedFundings query and flattens the venue matrix.
func (s *HyperliquidSource) Fetch(ctx context.Context) (Batch, error) {
	var reply []assetFundings
	if err := postJSON(ctx, s.httpClient, s.baseURL+"/info", infoRequest{Type: "predictedFundings"}, &reply); err != nil {
		return Batch{}, fmt.Errorf("hyperliquid predicted fundings: %w", err)
	}

	candidates := make([]validation.Candidate, 0, len(reply)*2)
	for _, asset := range reply {
		for _, venue := range asset.Venues {
			c := validation.Candidate{
				Exchange: venue.Venue,
				Asset:    asset.Asset,
			}
			if venue.Info != nil {
				c.Rate = string(venue.Info.FundingRate)
				c.IntervalHours = intervalHours(venue.Info.FundingIntervalHours)
				c.NextFundingMs = venue.Info.NextFundingTime
			}
			candidates = append(candidates, c)
		}
	}

	batch := screen(s.Name(), candidates)
	logrus.WithFields(logrus.Fields{
		"exchange": s.Name(),
		"assets":   len(reply),
		"accepted": len(batch.Rates),
	}).Debug("Received predicted fundings from Hyperliquid")
	return batch, nil
}

// assetFundings is one [asset, [[venue, info], ...]] tuple.
type assetFundings struct {
	Asset  string
	Venues []venueFunding
}

// venueFunding is one [venue, info|null] tuple.
type venueFunding struct {
	Venue string
	Info  *venueInfo
}

type venueInfo struct {
	FundingRate          rateText     `json:"fundingRate"`
	NextFundingTime      int64        `json:"nextFundingTime"`
	FundingIntervalHours *json.Number `json:"fundingIntervalHours"`
}

// UnmarshalJSON decodes the positional tuple form.
func (a *assetFundings) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return fmt.Errorf("asset tuple: expected 2 elements, got %d", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &a.Asset); err != nil {
		return fmt.Errorf("asset name: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &a.Venues); err != nil {
		return fmt.Errorf("venues for %s: %w", a.Asset, err)
	}
	return nil
}

// UnmarshalJSON decodes the positional tuple form.
func (v *venueFunding) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return fmt.Errorf("venue tuple: expected 2 elements, got %d", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &v.Venue); err != nil {
		return fmt.Errorf("venue name: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &v.Info); err != nil {
		return fmt.Errorf("venue %s: %w", v.Venue, err)
	}
	return nil
}
