package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/funding-rate-ranker/internal/config"
	"github.com/yourorg/funding-rate-ranker/internal/model"
)

// WebhookPublisher posts the ranked slices as JSON to an HTTP endpoint.
type WebhookPublisher struct {
	url        string
	apiKey     string
	httpClient *http.Client
	clock      clock
}

// webhookPayload is the body sent to the webhook.
type webhookPayload struct {
	Largest     []model.FundingRate `json:"largest"`
	Smallest    []model.FundingRate `json:"smallest"`
	Count       int                 `json:"count"`
	GeneratedAt string              `json:"generated_at"`
	Text        string              `json:"text"`
}

// NewWebhookPublisher creates a new webhook sink.
func NewWebhookPublisher(cfg config.WebhookConfig, hc *http.Client) *WebhookPublisher {
	return &WebhookPublisher{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: hc,
	}
}

// Name identifies the sink.
func (p *WebhookPublisher) Name() string { return config.PublisherWebhook }

// Publish sends the report to the webhook endpoint
func (p *WebhookPublisher) Publish(ctx context.Context, largest, smallest []model.FundingRate) error {
	if p.url == "" {
		return fmt.Errorf("%w: webhook URL not configured", ErrPublish)
	}

	now := p.clock.now()
	data := webhookPayload{
		Largest:     nonNil(largest),
		Smallest:    nonNil(smallest),
		Count:       len(largest) + len(smallest),
		GeneratedAt: now.Format("2006-01-02T15:04:05Z07:00"),
		Text:        Render(largest, smallest, now),
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal report: %v", ErrPublish, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("%w: failed to create webhook request: %v", ErrPublish, err)
	}

	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: webhook request failed: %v", ErrPublish, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: webhook returned error status: %d", ErrPublish, resp.StatusCode)
	}

	logrus.WithFields(logrus.Fields{
		"publisher": p.Name(),
		"count":     data.Count,
	}).Info("Report delivered to webhook")
	return nil
}

func nonNil(rates []model.FundingRate) []model.FundingRate {
	if rates == nil {
		return []model.FundingRate{}
	}
	return rates
}
