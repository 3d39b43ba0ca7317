// Package rates looks up official UAH exchange rates from the NBU statistics
// API. Lookups are memoized per date string so a large export resolving the
// same registration date hundreds of times performs a single network call.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const defaultBaseURL = "https://bank.gov.ua/NBUStatService/v1/statdirectory/exchange"

// Service resolves USD/UAH rates for a given date. A lookup failure degrades
// to a zero rate; downstream currency math treats zero as "no rate" and
// renders sentinel values instead of aborting.
type Service struct {
	client  *http.Client
	baseURL string

	mu   sync.Mutex
	memo map[string]float64
}

// New creates a rate service with the default NBU endpoint.
func New() *Service {
	return NewWithClient(&http.Client{Timeout: 10 * time.Second}, defaultBaseURL)
}

// NewWithClient creates a rate service against a custom client and endpoint.
func NewWithClient(client *http.Client, baseURL string) *Service {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Service{
		client:  client,
		baseURL: baseURL,
		memo:    make(map[string]float64),
	}
}

type nbuRate struct {
	Rate float64 `json:"rate"`
	CC   string  `json:"cc"`
}

// USDRateForDate returns the USD rate for a YYYYMMDD date string, or 0 when
// the lookup fails or the date is empty.
func (s *Service) USDRateForDate(ctx context.Context, date string) float64 {
	if date == "" {
		return 0
	}

	s.mu.Lock()
	if rate, ok := s.memo[date]; ok {
		s.mu.Unlock()
		return rate
	}
	s.mu.Unlock()

	rate := s.fetch(ctx, date)

	s.mu.Lock()
	s.memo[date] = rate
	s.mu.Unlock()
	return rate
}

func (s *Service) fetch(ctx context.Context, date string) float64 {
	url := fmt.Sprintf("%s?valcode=USD&date=%s&json", s.baseURL, date)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		slog.Warn("failed to build rate request", "date", date, "error", err)
		return 0
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Warn("rate lookup failed", "date", date, "error", err)
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("rate lookup returned non-200", "date", date, "status", resp.StatusCode)
		return 0
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		slog.Warn("failed to read rate response", "date", date, "error", err)
		return 0
	}

	var rates []nbuRate
	if err := json.Unmarshal(body, &rates); err != nil {
		slog.Warn("failed to decode rate response", "date", date, "error", err)
		return 0
	}
	for _, r := range rates {
		if r.CC == "USD" && r.Rate > 0 {
			return r.Rate
		}
	}
	return 0
}

// Reset clears the per-run memoization cache.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memo = make(map[string]float64)
}
