package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates that search works but usage counters are not persisted.
	Degraded Status = "degraded"
	// Unhealthy indicates the catalog is unreachable.
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

const checkTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	catalog    Pinger
	vocabulary Pinger
}

// New creates a Service. vocabulary can be nil.
func New(catalog, vocabulary Pinger) *Service {
	return &Service{catalog: catalog, vocabulary: vocabulary}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if ping(ctx, s.catalog) {
		checks["catalog"] = CheckOK
	} else {
		checks["catalog"] = CheckError
		status = Unhealthy
	}

	if s.vocabulary != nil {
		if ping(ctx, s.vocabulary) {
			checks["vocabulary"] = CheckOK
		} else {
			checks["vocabulary"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		}
	}

	return Report{Status: status, Checks: checks}
}

func ping(ctx context.Context, p Pinger) bool {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	return p.Ping(ctx) == nil
}
