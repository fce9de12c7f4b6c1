// Package fetch provides exchange-specific adapters for retrieving funding rates.
// Each adapter hides its exchange's response shape and hands back screened
// records ready for normalization.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/funding-rate-ranker/internal/config"
	"github.com/yourorg/funding-rate-ranker/internal/model"
	"github.com/yourorg/funding-rate-ranker/internal/validation"
)

var (
	// ErrUnexpectedStatus matches any *StatusError.
	ErrUnexpectedStatus = errors.New("unexpected status code")

	// ErrMalformedResponse is returned when a response body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError reports a non-2xx reply.
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d, body: %s", e.URL, e.Code, e.Body)
}

// Is lets errors.Is(err, ErrUnexpectedStatus) match.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// Batch is one adapter's contribution to a cycle.
type Batch struct {
	// Source is the adapter name, e.g. "aster"
	Source string

	// Rates are the screened records; their Exchange field names the venue
	Rates []model.RawFundingRate

	// Skipped counts per-record exclusions by reason
	Skipped validation.Tally
}

// Source defines the interface that all exchange adapters must implement
type Source interface {
	// Name identifies the adapter
	Name() string

	// Fetch retrieves and screens the current funding rates
	Fetch(ctx context.Context) (Batch, error)
}

// HTTPOptions tunes the HTTP client shared by adapters and publishers.
type HTTPOptions struct {
	// Timeout bounds a single attempt
	Timeout time.Duration

	// RetryMax is the number of retries for connection errors, 429 and 5xx
	RetryMax int

	// Transport overrides the round tripper (tests, recorders)
	Transport http.RoundTripper
}

// NewHTTPClient creates an HTTP client with retry capabilities
func NewHTTPClient(opts HTTPOptions) *http.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = opts.RetryMax
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 3 * time.Second
	c.Logger = retryLogger{entry: logrus.WithField("component", "http")}
	// Hand the final response back so non-2xx replies surface as *StatusError.
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.Timeout > 0 {
		c.HTTPClient.Timeout = opts.Timeout
	}
	if opts.Transport != nil {
		c.HTTPClient.Transport = opts.Transport
	}
	return c.StandardClient()
}

// NewSources builds the adapters named in cfg.Exchanges, in that order.
func NewSources(cfg config.Config, hc *http.Client) ([]Source, error) {
	sources := make([]Source, 0, len(cfg.Exchanges))
	for _, name := range cfg.Exchanges {
		src, err := NewSource(name, cfg.Exchange(name), hc)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// NewSource creates a single adapter by exchange name.
func NewSource(name string, ex config.ExchangeConfig, hc *http.Client) (Source, error) {
	switch name {
	case config.ExchangeAster:
		return NewAsterSource(ex, hc), nil
	case config.ExchangeHyperliquid:
		return NewHyperliquidSource(ex, hc), nil
	case config.ExchangeBinance:
		return NewBinanceSource(ex, hc), nil
	}
	return nil, fmt.Errorf("unknown exchange %q", name)
}

// screen turns candidates into a batch.
func screen(source string, candidates []validation.Candidate) Batch {
	rates, skipped := validation.Screen(candidates)
	return Batch{
		Source:  source,
		Rates:   rates,
		Skipped: validation.TallySkips(skipped),
	}
}

// getJSON issues a GET and decodes a 2xx JSON body into target.
func getJSON(ctx context.Context, hc *http.Client, url string, header http.Header, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	return doJSON(hc, req, target)
}

// postJSON issues a POST with a JSON body and decodes a 2xx JSON reply into target.
func postJSON(ctx context.Context, hc *http.Client, url string, body, target interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("error encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return doJSON(hc, req, target)
}

func doJSON(hc *http.Client, req *http.Request, target interface{}) error {
	url := req.URL.String()
	logrus.Debugf("Fetching %s %s", req.Method, url)

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("error fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{URL: url, Code: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("%w from %s: %v", ErrMalformedResponse, url, err)
	}
	return nil
}

// retryLogger adapts logrus to retryablehttp.LeveledLogger.
type retryLogger struct {
	entry *logrus.Entry
}

func (l retryLogger) fields(keysAndValues []interface{}) *logrus.Entry {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return l.entry.WithFields(fields)
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Error(msg)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Debug(msg)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Debug(msg)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Warn(msg)
}
