package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/funding-rate-ranker/internal/config"
)

// AsterExchange is the exchange label carried by Aster records.
const AsterExchange = "AsterPerp"

// AsterSource reads Aster's perpetual funding rates. Rates and settlement
// intervals come from separate endpoints and are joined by symbol.
type AsterSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAsterSource creates a new Aster adapter. Credentials are optional since
// both endpoints are public; a key, when present, is sent as X-MBX-APIKEY.
func NewAsterSource(cfg config.ExchangeConfig, hc *http.Client) *AsterSource {
	return &AsterSource{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: hc,
	}
}

// Name identifies the adapter.
func (s *AsterSource) Name() string { return config.ExchangeAster }

// Fetch retrieves the premium index and funding info and joins them.
func (s *AsterSource) Fetch(ctx context.Context) (Batch, error) {
	header := http.Header{}
	if s.apiKey != "" {
		header.Set("X-MBX-APIKEY", s.apiKey)
	}

	var rates []premiumIndex
	if err := getJSON(ctx, s.httpClient, s.baseURL+"/fapi/v1/premiumIndex", header, &rates); err != nil {
		return Batch{}, fmt.Errorf("aster premium index: %w", err)
	}

	var infos []fundingInfo
	if err := getJSON(ctx, s.httpClient, s.baseURL+"/fapi/v1/fundingInfo", header, &infos); err != nil {
		return Batch{}, fmt.Errorf("aster funding info: %w", err)
	}

	batch := screen(s.Name(), joinFundingInfo(AsterExchange, rates, infos, nil))
	logrus.WithFields(logrus.Fields{
		"exchange": s.Name(),
		"rates":    len(rates),
		"infos":    len(infos),
		"accepted": len(batch.Rates),
	}).Debug("Received funding rates from Aster")
	return batch, nil
}
