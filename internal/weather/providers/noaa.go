package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/metar-snapshot/internal/common"
	"github.com/i474232898/metar-snapshot/internal/metar"
	"github.com/i474232898/metar-snapshot/internal/weather"
)

// maxStaleRetries is the number of extra fetches a stale report may trigger.
const maxStaleRetries = 1

// NOAAConfig holds the staleness policy of a NOAAProvider.
type NOAAConfig struct {
	// StaleAfter is the report age that triggers a retry. Zero disables the check.
	StaleAfter time.Duration
	// RetryPause is the wait before the stale-data retry.
	RetryPause time.Duration
}

// NOAAProvider implements weather.Fetcher for the NOAA tgftp station files,
// where the report is the last line after a timestamp line.
type NOAAProvider struct {
	name   string
	client *http.Client
	cfg    NOAAConfig
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	circuits map[string]*gobreaker.CircuitBreaker
}

func NewNOAAProvider(client *http.Client, cfg NOAAConfig, logger *slog.Logger) *NOAAProvider {
	return &NOAAProvider{
		name:     "noaa-tgftp",
		client:   client,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		circuits: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (p *NOAAProvider) Name() string {
	return p.name
}

// Fetch returns the cleaned report line for a station. A report older than
// StaleAfter is fetched once more after RetryPause; the retried report is
// accepted whatever its age. If the retry fails the stale report is kept.
func (p *NOAAProvider) Fetch(ctx context.Context, st weather.Station) (report string, err error) {
	defer func() {
		if r := recover(); r != nil {
			report, err = "", fmt.Errorf("fetch %s: panic: %v", st.Code, r)
		}
	}()

	var stale string
	for attempt := 0; attempt <= maxStaleRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, p.cfg.RetryPause); err != nil {
				return stale, nil
			}
		}

		report, err := p.fetchOnce(ctx, st)
		if err != nil {
			if stale != "" {
				p.logger.Warn("stale retry failed; keeping earlier report", "station", st.Code, "err", err)
				return stale, nil
			}
			return "", err
		}

		if attempt == maxStaleRetries || !p.isStale(st, report) {
			return report, nil
		}
		stale = report
	}
	return stale, nil
}

func (p *NOAAProvider) isStale(st weather.Station, report string) bool {
	if p.cfg.StaleAfter <= 0 {
		return false
	}
	ts, ok := metar.ObservationTime(report, p.now())
	if !ok {
		return false
	}
	age := p.now().UTC().Sub(ts)
	if age <= p.cfg.StaleAfter {
		return false
	}
	p.logger.Warn("stale metar; retrying once",
		"station", st.Code,
		"observed", ts.Format(time.RFC3339),
		"age", age.Round(time.Minute).String(),
		"pause", p.cfg.RetryPause.String())
	return true
}

func (p *NOAAProvider) fetchOnce(ctx context.Context, st weather.Station) (string, error) {
	p.logger.Info("fetching metar", "station", st.Code, "url", st.URL)

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, st.URL, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range noCacheHeaders {
			req.Header.Set(k, v)
		}
		return req, nil
	}

	resp, err := doRequest(ctx, p.client, p.circuit(st.URL), buildRequest)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", st.Code, err)
	}
	defer resp.Body.Close()

	body, err := readText(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", st.Code, err)
	}

	line := common.StripControl(common.LastNonBlankLine(body))
	if !metar.LooksLikeReport(line) {
		return "", fmt.Errorf("%w: %s", weather.ErrReportUnavailable, st.Code)
	}

	p.logger.Info("fetched metar", "station", st.Code, "metar", line)
	return line, nil
}

// circuit returns the breaker for an endpoint, so one failing station does
// not open the circuit for the others.
func (p *NOAAProvider) circuit(endpoint string) *gobreaker.CircuitBreaker {
	p.mu.Lock()
	defer p.mu.Unlock()

	cb, ok := p.circuits[endpoint]
	if !ok {
		cb = newCircuitBreaker("noaa:" + endpoint)
		p.circuits[endpoint] = cb
	}
	return cb
}
