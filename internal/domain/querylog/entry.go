// Package querylog holds the append-only audit record of searches.
package querylog

import "time"

// ResultRef identifies one returned hit inside a log entry.
type ResultRef struct {
	RecordID string  `json:"record_id"`
	Score    float64 `json:"score"`
}

// Entry is one search transaction. Entries are append-only; the service
// never mutates or deletes them.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Query     string         `json:"query"`
	Filters   map[string]any `json:"filters,omitempty"`
	TopK      int            `json:"top_k"`
	Results   []ResultRef    `json:"results"`
	Dropped   int            `json:"dropped,omitempty"`
	LatencyMS int64          `json:"latency_ms"`
	ClientIP  string         `json:"client_ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
}
