package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/funding-rate-ranker/internal/config"
	"github.com/yourorg/funding-rate-ranker/internal/validation"
)

// BinanceExchange is the exchange label carried by Binance records.
const BinanceExchange = "BinancePerp"

// binanceDefaultHours applies to symbols Binance leaves out of fundingInfo,
// which only lists contracts with an adjusted interval.
const binanceDefaultHours = 8

// BinanceSource reads Binance USDⓈ-M funding rates through the go-binance SDK.
type BinanceSource struct {
	client     *futures.Client
	baseURL    string
	httpClient *http.Client
}

// NewBinanceSource creates a new Binance adapter.
func NewBinanceSource(cfg config.ExchangeConfig, hc *http.Client) *BinanceSource {
	baseURL := strings.TrimRight(cfg.URL, "/")
	client := futures.NewClient(cfg.APIKey, cfg.APISecret)
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	client.HTTPClient = hc
	return &BinanceSource{
		client:     client,
		baseURL:    client.BaseURL,
		httpClient: hc,
	}
}

// Name identifies the adapter.
func (s *BinanceSource) Name() string { return config.ExchangeBinance }

// Fetch retrieves the premium index via the SDK and joins it with fundingInfo.
func (s *BinanceSource) Fetch(ctx context.Context) (Batch, error) {
	index, err := s.client.NewPremiumIndexService().Do(ctx)
	if err != nil {
		return Batch{}, fmt.Errorf("binance premium index: %w", err)
	}

	rates := make([]premiumIndex, 0, len(index))
	for _, p := range index {
		if p == nil {
			continue
		}
		rates = append(rates, premiumIndex{
			Symbol:          p.Symbol,
			MarkPrice:       rateText(p.MarkPrice),
			LastFundingRate: rateText(p.LastFundingRate),
			NextFundingTime: p.NextFundingTime,
		})
	}

	var infos []fundingInfo
	if err := getJSON(ctx, s.httpClient, s.baseURL+"/fapi/v1/fundingInfo", nil, &infos); err != nil {
		return Batch{}, fmt.Errorf("binance funding info: %w", err)
	}

	batch := screen(s.Name(), joinFundingInfo(BinanceExchange, rates, infos, validation.Hours(binanceDefaultHours)))
	logrus.WithFields(logrus.Fields{
		"exchange": s.Name(),
		"rates":    len(rates),
		"adjusted": len(infos),
		"accepted": len(batch.Rates),
	}).Debug("Received funding rates from Binance")
	return batch, nil
}
