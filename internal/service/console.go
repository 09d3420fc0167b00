package service

import (
	"context"
	"fmt"
	"time"

	"github.com/inlet-labs/inlet/internal/domain"
	"github.com/inlet-labs/inlet/internal/stt"
)

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BucketChecker checks object storage reachability.
type BucketChecker interface {
	HeadBucket(ctx context.Context) error
}

// TranscriptionHealthChecker probes the STT service.
type TranscriptionHealthChecker interface {
	Health(ctx context.Context) (*stt.HealthStatus, error)
}

// ConsoleService aggregates operational state for the operator console.
type ConsoleService struct {
	db      Pinger
	storage BucketChecker
	speech  TranscriptionHealthChecker
	items   ItemRepositoryInterface
	jobs    CaptureJobRepositoryInterface
}

// NewConsoleService creates a new ConsoleService instance. storage and
// speech may be nil when those components are not configured.
func NewConsoleService(
	db Pinger,
	storage BucketChecker,
	speech TranscriptionHealthChecker,
	items ItemRepositoryInterface,
	jobs CaptureJobRepositoryInterface,
) *ConsoleService {
	return &ConsoleService{
		db:      db,
		storage: storage,
		speech:  speech,
		items:   items,
		jobs:    jobs,
	}
}

// ComponentStatus is the health of one dependency.
type ComponentStatus struct {
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// HealthReport aggregates per-component health.
type HealthReport struct {
	Components map[string]ComponentStatus `json:"components"`
}

const (
	statusHealthy      = "healthy"
	statusUnhealthy    = "unhealthy"
	statusUnconfigured = "unconfigured"
)

func componentStatus(err error) ComponentStatus {
	if err != nil {
		return ComponentStatus{Status: statusUnhealthy, Detail: err.Error(), CheckedAt: time.Now().UTC()}
	}
	return ComponentStatus{Status: statusHealthy, CheckedAt: time.Now().UTC()}
}

// Health checks every dependency. A failing component never fails the call;
// its state lands in the report instead.
func (s *ConsoleService) Health(ctx context.Context) *HealthReport {
	components := map[string]ComponentStatus{
		"api":      {Status: statusHealthy, CheckedAt: time.Now().UTC()},
		"postgres": componentStatus(s.db.Ping(ctx)),
	}

	if s.storage != nil {
		components["storage"] = componentStatus(s.storage.HeadBucket(ctx))
	} else {
		components["storage"] = ComponentStatus{Status: statusUnconfigured, CheckedAt: time.Now().UTC()}
	}

	if s.speech != nil {
		status, err := s.speech.Health(ctx)
		cs := componentStatus(err)
		if err == nil && status.Model != "" {
			cs.Detail = "model=" + status.Model
		}
		components["stt_service"] = cs
	} else {
		components["stt_service"] = ComponentStatus{Status: statusUnconfigured, CheckedAt: time.Now().UTC()}
	}

	if counts, err := s.jobs.CountByStatus(ctx); err != nil {
		components["queue"] = componentStatus(err)
	} else {
		cs := componentStatus(nil)
		cs.Detail = fmt.Sprintf("pending=%d processing=%d",
			counts[domain.CaptureJobStatusPending], counts[domain.CaptureJobStatusProcessing])
		components["queue"] = cs
	}

	return &HealthReport{Components: components}
}

// ConsoleMetrics reports item and job counts grouped by status.
type ConsoleMetrics struct {
	Items map[string]int `json:"items"`
	Jobs  map[string]int `json:"jobs"`
}

// Metrics returns current pipeline counters.
func (s *ConsoleService) Metrics(ctx context.Context) (*ConsoleMetrics, error) {
	itemCounts, err := s.items.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	jobCounts, err := s.jobs.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	metrics := &ConsoleMetrics{
		Items: make(map[string]int, len(itemCounts)),
		Jobs:  make(map[string]int, len(jobCounts)),
	}
	for status, count := range itemCounts {
		metrics.Items[string(status)] = count
	}
	for status, count := range jobCounts {
		metrics.Jobs[string(status)] = count
	}

	return metrics, nil
}
