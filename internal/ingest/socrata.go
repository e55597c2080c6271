package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// SourceConfig configures the open-data source client.
type SourceConfig struct {
	// BaseURL is the dataset resource endpoint, e.g.
	// https://data.austintexas.gov/resource/3syk-w9eu.json
	BaseURL    string
	PageSize   int
	RatePerSec float64
	AppToken   string
}

// Source pages through a Socrata-style JSON dataset with $limit/$offset.
// Requests are rate limited so a full backfill stays inside the API's
// throttling budget.
type Source struct {
	baseURL  string
	pageSize int
	token    string
	limiter  *rate.Limiter
	client   *http.Client
}

// NewSource creates a paged dataset client.
func NewSource(cfg SourceConfig) *Source {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 2
	}
	return &Source{
		baseURL:  cfg.BaseURL,
		pageSize: pageSize,
		token:    cfg.AppToken,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// PageSize returns the configured page size.
func (s *Source) PageSize() int { return s.pageSize }

// FetchPage returns one page of raw rows starting at offset. A page shorter
// than PageSize means the dataset is exhausted.
func (s *Source) FetchPage(ctx context.Context, offset int) ([]map[string]any, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}
	q := u.Query()
	q.Set("$limit", strconv.Itoa(s.pageSize))
	q.Set("$offset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if s.token != "" {
		req.Header.Set("X-App-Token", s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page at offset %d: %w", offset, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("fetch page at offset %d: status %d: %s", offset, resp.StatusCode, string(body))
	}

	var rows []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("parse page at offset %d: %w", offset, err)
	}
	return rows, nil
}
