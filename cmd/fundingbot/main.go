// Package main is the entry point for the funding rate ranker: it polls perp
// exchanges, ranks their funding rates and publishes the extremes on a timer.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/funding-rate-ranker/internal/config"
	"github.com/yourorg/funding-rate-ranker/internal/cycle"
	"github.com/yourorg/funding-rate-ranker/internal/fetch"
	"github.com/yourorg/funding-rate-ranker/internal/logging"
	"github.com/yourorg/funding-rate-ranker/internal/metrics"
	"github.com/yourorg/funding-rate-ranker/internal/model"
	"github.com/yourorg/funding-rate-ranker/internal/otel"
	"github.com/yourorg/funding-rate-ranker/internal/publish"
)

// main is the entry point for the application
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		var cfgErr *config.Error
		if errors.As(err, &cfgErr) {
			logrus.Errorf("Invalid configuration:\n%v", err)
			os.Exit(2)
		}
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	logFile := logging.Setup(cfg.Log)
	defer logFile.Close()

	shutdownTracer := otel.InitTracer(cfg)
	defer shutdownTracer()

	if err := run(cfg); err != nil && !errors.Is(err, context.Canceled) {
		logrus.WithError(err).Error("Service stopped with error")
		os.Exit(1)
	}
}

// run wires the pipeline and blocks until SIGINT or SIGTERM.
func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, collectors, err := newRunner(cfg)
	if err != nil {
		return err
	}

	var server *Server
	if cfg.HTTPAddr != "" {
		server = NewServer(cfg, runner, collectors)
		server.Start()
	}

	err = runner.Run(ctx)

	if server != nil {
		server.Stop()
	}
	return err
}

// newHTTPClients returns the retrying client for exchange reads and a
// single-attempt client for publishing. A send that reached the chat before
// the connection failed must not be posted again.
func newHTTPClients(cfg config.Config) (fetchClient, publishClient *http.Client) {
	fetchClient = fetch.NewHTTPClient(fetch.HTTPOptions{
		Timeout:  cfg.RequestTimeout,
		RetryMax: cfg.HTTPRetryMax,
	})
	publishClient = fetch.NewHTTPClient(fetch.HTTPOptions{
		Timeout:  cfg.PublishTimeout,
		RetryMax: 0,
	})
	return fetchClient, publishClient
}

// newRunner builds adapters, the publisher and the scheduler from cfg.
func newRunner(cfg config.Config) (*cycle.Runner, *metrics.Collectors, error) {
	horizon, err := model.ParseHorizon(cfg.RankHorizon)
	if err != nil {
		return nil, nil, err
	}

	fetchClient, publishClient := newHTTPClients(cfg)

	sources, err := fetch.NewSources(cfg, fetchClient)
	if err != nil {
		return nil, nil, err
	}

	publisher, err := publish.New(cfg, publishClient)
	if err != nil {
		return nil, nil, err
	}

	collectors := metrics.New()
	runner := cycle.NewRunner(sources, publisher, collectors, cycle.Options{
		Interval:       cfg.PollInterval,
		TopN:           cfg.TopN,
		Horizon:        horizon,
		FetchTimeout:   cfg.RequestTimeout,
		PublishTimeout: cfg.PublishTimeout,
		PublishEmpty:   cfg.PublishEmpty,
	})

	logrus.WithFields(logrus.Fields{
		"exchanges": cfg.Exchanges,
		"publisher": publisher.Name(),
		"interval":  cfg.PollInterval,
		"top_n":     cfg.TopN,
		"horizon":   horizon.String(),
	}).Info("Funding rate ranker initialized")

	return runner, collectors, nil
}
