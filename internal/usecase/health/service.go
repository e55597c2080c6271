// Package health aggregates dependency checks into one report.
package health

import (
	"context"
	"errors"
	"time"
)

var errIndexMissing = errors.New("index missing")

// Status is the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the service can still answer some requests.
	Degraded Status = "degraded"
	// Unhealthy indicates the record store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult is an individual component outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// checkTimeout bounds each individual probe.
const checkTimeout = 3 * time.Second

// Report aggregates component check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	embedding EmbeddingChecker
	index     IndexChecker
	indexName string
}

// New creates a Service. embedding and index can be nil; their checks are
// then omitted from the report.
func New(store StorePinger, embedding EmbeddingChecker, index IndexChecker, indexName string) *Service {
	return &Service{store: store, embedding: embedding, index: index, indexName: indexName}
}

// Check probes every configured component. A store failure makes the whole
// service unhealthy; embedding or index failures only degrade it, since
// stored records still serve reads.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	storeDown := s.probe(ctx, func(ctx context.Context) error {
		return s.store.Ping(ctx)
	})
	if storeDown {
		checks["store"] = CheckError
	} else {
		checks["store"] = CheckOK
	}

	if s.embedding != nil {
		if s.probe(ctx, s.embedding.HealthCheck) {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	if s.index != nil {
		failed := s.probe(ctx, func(ctx context.Context) error {
			ok, err := s.index.IndexExists(ctx, s.indexName)
			if err != nil {
				return err
			}
			if !ok {
				return errIndexMissing
			}
			return nil
		})
		if failed {
			checks["index"] = CheckError
		} else {
			checks["index"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if storeDown {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) probe(ctx context.Context, fn func(context.Context) error) bool {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	return fn(ctx) != nil
}
