package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/playsearch/internal/domain/catalog"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates searches cannot be served.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// checkTimeout bounds each probe so one hung backend cannot stall the report.
const checkTimeout = 3 * time.Second

// Check is a named probe. A failing required probe makes the service unhealthy.
type Check struct {
	Name     string
	Required bool
	Probe    func(ctx context.Context) error
}

// PingCheck probes a storage backend.
func PingCheck(name string, p Pinger, required bool) Check {
	return Check{Name: name, Required: required, Probe: p.Ping}
}

// EmbeddingCheck probes the embedding provider. It is optional: cached
// queries still work while the provider is down.
func EmbeddingCheck(e EmbeddingChecker) Check {
	return Check{Name: "embedding", Probe: e.HealthCheck}
}

// Report aggregates health check results.
type Report struct {
	Status  Status
	Checks  map[string]CheckResult
	Catalog *catalog.Stats
}

// Service coordinates health checks.
type Service struct {
	catalog CatalogSource
	checks  []Check
}

// New creates a Service. The catalog snapshot is always a required check.
func New(src CatalogSource, checks ...Check) *Service {
	return &Service{catalog: src, checks: checks}
}

// Check runs all probes concurrently.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{Status: Healthy, Checks: make(map[string]CheckResult, len(s.checks)+1)}

	if snap := s.catalog.Current(); snap != nil {
		stats := snap.Stats()
		r.Catalog = &stats
		r.Checks["catalog"] = CheckOK
	} else {
		r.Checks["catalog"] = CheckError
		r.Status = Unhealthy
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, c := range s.checks {
		g.Go(func() error {
			err := probe(ctx, c)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				r.Checks[c.Name] = CheckOK
				return nil
			}
			r.Checks[c.Name] = CheckError
			switch {
			case c.Required:
				r.Status = Unhealthy
			case r.Status == Healthy:
				r.Status = Degraded
			}
			return nil
		})
	}
	_ = g.Wait()

	return r
}

func probe(ctx context.Context, c Check) error {
	if c.Probe == nil {
		return errors.New("no probe")
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	return c.Probe(ctx)
}
