package publish

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/funding-rate-ranker/internal/config"
	"github.com/yourorg/funding-rate-ranker/internal/model"
)

// LogPublisher writes the rendered report to the log. Useful for dry runs.
type LogPublisher struct {
	clock clock
}

// NewLogPublisher creates a new log sink.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

// Name identifies the sink.
func (p *LogPublisher) Name() string { return config.PublisherLog }

// Publish logs the report and never fails.
func (p *LogPublisher) Publish(ctx context.Context, largest, smallest []model.FundingRate) error {
	logrus.WithFields(logrus.Fields{
		"publisher": p.Name(),
		"largest":   len(largest),
		"smallest":  len(smallest),
	}).Info("\n" + Render(largest, smallest, p.clock.now()))
	return nil
}
