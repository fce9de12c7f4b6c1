// Package publish delivers ranked funding reports to their destination.
package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/yourorg/funding-rate-ranker/internal/config"
	"github.com/yourorg/funding-rate-ranker/internal/model"
)

// ErrPublish wraps every delivery failure.
var ErrPublish = errors.New("publish failed")

// Publisher receives the two ranked slices of a cycle.
type Publisher interface {
	// Name identifies the sink in logs and metrics
	Name() string

	// Publish renders and delivers largest (descending) and smallest (ascending)
	Publish(ctx context.Context, largest, smallest []model.FundingRate) error
}

// New builds the publisher selected by cfg.Publisher.
func New(cfg config.Config, hc *http.Client) (Publisher, error) {
	switch cfg.Publisher {
	case config.PublisherTelegram:
		return NewTelegramPublisher(cfg.Telegram, hc), nil
	case config.PublisherWebhook:
		return NewWebhookPublisher(cfg.Webhook, hc), nil
	case config.PublisherLog:
		return NewLogPublisher(), nil
	}
	return nil, fmt.Errorf("unknown publisher %q", cfg.Publisher)
}

// clock is overridden in tests.
type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
