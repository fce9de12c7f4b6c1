// Package cycle drives the poll, normalize, rank and publish loop. Each cycle
// is independent; a failing adapter or publisher only affects the cycle it
// happened in.
package cycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yourorg/funding-rate-ranker/internal/aggregate"
	"github.com/yourorg/funding-rate-ranker/internal/fetch"
	"github.com/yourorg/funding-rate-ranker/internal/metrics"
	"github.com/yourorg/funding-rate-ranker/internal/model"
	"github.com/yourorg/funding-rate-ranker/internal/normalize"
	tracing "github.com/yourorg/funding-rate-ranker/internal/otel"
	"github.com/yourorg/funding-rate-ranker/internal/publish"
	"github.com/yourorg/funding-rate-ranker/internal/validation"
)

// Cycle outcomes
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
	OutcomePanic    = "panic"
)

// Options tunes the runner.
type Options struct {
	// Interval between cycle starts
	Interval time.Duration

	// TopN is the size of each ranked slice
	TopN int

	// Horizon is the ranking key
	Horizon model.Horizon

	// FetchTimeout bounds each adapter call
	FetchTimeout time.Duration

	// PublishTimeout bounds the publish call
	PublishTimeout time.Duration

	// PublishEmpty publishes a report even when no adapter produced records
	PublishEmpty bool
}

// SourceStatus summarizes one adapter's part in a cycle.
type SourceStatus struct {
	Source   string           `json:"source"`
	Records  int              `json:"records"`
	Skipped  validation.Tally `json:"skipped,omitempty"`
	Error    string           `json:"error,omitempty"`
	Duration string           `json:"duration"`
}

// Status summarizes a finished cycle.
type Status struct {
	CycleID    string         `json:"cycle_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Outcome    string         `json:"outcome"`
	Sources    []SourceStatus `json:"sources"`

	// Exchanges counts normalized records per exchange label
	Exchanges map[string]int `json:"exchanges"`

	Total    int     `json:"total"`
	Largest  int     `json:"largest"`
	Smallest int     `json:"smallest"`
	Median   float64 `json:"median_pct"`

	Published    bool   `json:"published"`
	PublishError string `json:"publish_error,omitempty"`
	Panic        string `json:"panic,omitempty"`
}

// Runner executes cycles against a fixed set of adapters and one publisher.
type Runner struct {
	sources   []fetch.Source
	publisher publish.Publisher
	metrics   *metrics.Collectors
	opts      Options
	now       func() time.Time

	mu   sync.RWMutex
	last *Status
}

// NewRunner creates a new runner. A nil collector set gets a private one.
func NewRunner(sources []fetch.Source, publisher publish.Publisher, m *metrics.Collectors, opts Options) *Runner {
	if m == nil {
		m = metrics.New()
	}
	if opts.Horizon == 0 {
		opts.Horizon = model.Horizon8h
	}
	return &Runner{
		sources:   sources,
		publisher: publisher,
		metrics:   m,
		opts:      opts,
		now:       time.Now,
	}
}

// Run executes a cycle immediately and then once per interval until ctx is
// cancelled. Cycles never overlap.
func (r *Runner) Run(ctx context.Context) error {
	logrus.WithFields(logrus.Fields{
		"interval":  r.opts.Interval,
		"top_n":     r.opts.TopN,
		"horizon":   r.opts.Horizon.String(),
		"sources":   len(r.sources),
		"publisher": r.publisher.Name(),
	}).Info("Scheduler started")

	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		r.RunOnce(ctx)

		select {
		case <-ctx.Done():
			logrus.Info("Scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LastStatus returns the most recent finished cycle.
func (r *Runner) LastStatus() (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return Status{}, false
	}
	return *r.last, true
}

// RunOnce executes a single cycle. Panics are recovered and reported in the
// returned status.
func (r *Runner) RunOnce(ctx context.Context) (status Status) {
	start := r.now()
	status = Status{
		CycleID:   uuid.NewString(),
		StartedAt: start.UTC(),
	}
	log := logrus.WithField("cycle_id", status.CycleID)

	ctx, span := tracing.Tracer().Start(ctx, "funding.cycle")
	span.SetAttributes(attribute.String("cycle_id", status.CycleID))

	defer func() {
		if rec := recover(); rec != nil {
			status.Outcome = OutcomePanic
			status.Panic = fmt.Sprint(rec)
			tracing.RecordError(ctx, fmt.Errorf("panic: %v", rec))
			log.WithField("panic", rec).Error("Cycle aborted by panic")
		}
		status.FinishedAt = r.now().UTC()
		elapsed := status.FinishedAt.Sub(status.StartedAt)
		r.metrics.ObserveCycle(status.Outcome, elapsed.Seconds())
		span.SetAttributes(attribute.String("outcome", status.Outcome))
		span.End()
		r.store(status)

		log.WithFields(logrus.Fields{
			"outcome":   status.Outcome,
			"records":   status.Total,
			"published": status.Published,
			"duration":  elapsed.String(),
		}).Info("Cycle finished")
	}()

	groups, sources := r.fetchAll(ctx, log)
	status.Sources = sources

	failed := 0
	for _, s := range sources {
		if s.Error != "" {
			failed++
		}
	}

	merged := aggregate.Merge(groups)
	status.Total = len(merged)
	status.Exchanges = aggregate.CountByExchange(merged)
	status.Median = aggregate.Median(merged, func(f model.FundingRate) float64 { return f.At(r.opts.Horizon) })

	largest, smallest := aggregate.RankBy(merged, r.opts.Horizon, r.opts.TopN)
	status.Largest = len(largest)
	status.Smallest = len(smallest)

	switch {
	case failed == 0:
		status.Outcome = OutcomeOK
	case failed < len(sources):
		status.Outcome = OutcomeDegraded
	default:
		status.Outcome = OutcomeFailed
	}

	if len(merged) == 0 && !r.opts.PublishEmpty {
		log.Warn("No funding records this cycle, skipping publish")
		r.metrics.ObservePublish(r.publisher.Name(), metrics.ResultSkippedEmpty, float64(r.now().Unix()))
		return status
	}

	if err := r.publish(ctx, largest, smallest); err != nil {
		status.PublishError = err.Error()
		status.Outcome = OutcomeFailed
		tracing.RecordError(ctx, err)
		log.WithError(err).WithField("publisher", r.publisher.Name()).Error("Publish failed")
		r.metrics.ObservePublish(r.publisher.Name(), metrics.ResultError, float64(r.now().Unix()))
		return status
	}

	status.Published = true
	r.metrics.ObservePublish(r.publisher.Name(), metrics.ResultSuccess, float64(r.now().Unix()))
	return status
}

func (r *Runner) publish(ctx context.Context, largest, smallest []model.FundingRate) error {
	if r.opts.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.PublishTimeout)
		defer cancel()
	}

	ctx, span := tracing.Tracer().Start(ctx, "funding.publish")
	defer span.End()
	span.SetAttributes(attribute.String("publisher", r.publisher.Name()))

	err := r.publisher.Publish(ctx, largest, smallest)
	tracing.RecordError(ctx, err)
	return err
}

// fetchAll calls every adapter concurrently and returns their normalized
// output in adapter order.
func (r *Runner) fetchAll(ctx context.Context, log *logrus.Entry) ([]aggregate.Group, []SourceStatus) {
	var (
		wg       sync.WaitGroup
		groups   = make([]aggregate.Group, len(r.sources))
		statuses = make([]SourceStatus, len(r.sources))
	)

	for i, src := range r.sources {
		wg.Add(1)
		go func(i int, src fetch.Source) {
			defer wg.Done()

			start := r.now()
			rates, skipped, err := r.fetchOne(ctx, src)
			elapsed := r.now().Sub(start)

			st := SourceStatus{Source: src.Name(), Duration: elapsed.String()}
			entry := log.WithField("exchange", src.Name())
			if err != nil {
				st.Error = err.Error()
				entry.WithError(err).Warn("Adapter fetch failed, excluding it from this cycle")
				r.metrics.ObserveFetch(src.Name(), elapsed.Seconds(), 0, nil, err)
				statuses[i] = st
				groups[i] = aggregate.Group{Source: src.Name()}
				return
			}

			st.Records = len(rates)
			st.Skipped = skipped
			entry.WithFields(logrus.Fields{
				"records": len(rates),
				"skipped": skipped.Total(),
			}).Debug("Adapter fetch complete")
			r.metrics.ObserveFetch(src.Name(), elapsed.Seconds(), len(rates), skipped, nil)

			statuses[i] = st
			groups[i] = aggregate.Group{Source: src.Name(), Rates: rates}
		}(i, src)
	}

	wg.Wait()
	return groups, statuses
}

// fetchOne runs one adapter under its own timeout and normalizes its batch.
// A panic in either step becomes an error local to that adapter.
func (r *Runner) fetchOne(ctx context.Context, src fetch.Source) (rates []model.FundingRate, skipped validation.Tally, err error) {
	if r.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.FetchTimeout)
		defer cancel()
	}

	ctx, span := tracing.Tracer().Start(ctx, "funding.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("source", src.Name()))

	defer func() {
		if rec := recover(); rec != nil {
			rates, skipped = nil, nil
			err = fmt.Errorf("adapter %s panicked: %v", src.Name(), rec)
		}
		tracing.RecordError(ctx, err)
	}()

	batch, err := src.Fetch(ctx)
	if err != nil {
		return nil, nil, err
	}
	return normalize.All(batch.Rates), batch.Skipped, nil
}

func (r *Runner) store(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = &s
}
