// Package monitor runs fleet-wide device health checks through the batch
// processor so a slow or failing agent never stalls the whole sweep.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/gotrs-io/slaengine/internal/batch"
	"github.com/gotrs-io/slaengine/internal/breaker"
	"github.com/gotrs-io/slaengine/internal/events"
	"github.com/gotrs-io/slaengine/internal/metrics"
	"github.com/gotrs-io/slaengine/internal/models"
	"github.com/gotrs-io/slaengine/internal/store"
)

// Thresholds classify a device as unhealthy when any limit is reached.
type Thresholds struct {
	CPULimit    float64
	MemoryLimit float64
	DiskLimit   float64
}

// DefaultThresholds is the fixed classification policy: cpu<90, mem<90,
// disk<95.
var DefaultThresholds = Thresholds{CPULimit: 90, MemoryLimit: 90, DiskLimit: 95}

// HealthChecker fetches the latest report per device and classifies it.
type HealthChecker struct {
	devices    store.DeviceStore
	agent      *breaker.Breaker
	hub        *events.Hub
	logger     *log.Logger
	metrics    *metrics.Metrics
	thresholds Thresholds
	batchOpts  batch.Options
}

// Option customizes a HealthChecker.
type Option func(*HealthChecker)

// WithBreaker guards report fetches through the agent breaker.
func WithBreaker(b *breaker.Breaker) Option {
	return func(h *HealthChecker) { h.agent = b }
}

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *HealthChecker) { h.metrics = m }
}

// WithThresholds overrides the classification limits.
func WithThresholds(t Thresholds) Option {
	return func(h *HealthChecker) { h.thresholds = t }
}

// WithBatchOptions tunes chunk size and retry policy.
func WithBatchOptions(opts batch.Options) Option {
	return func(h *HealthChecker) { h.batchOpts = opts }
}

// WithHub publishes device.unhealthy events for failing devices.
func WithHub(hub *events.Hub) Option {
	return func(h *HealthChecker) { h.hub = hub }
}

// NewHealthChecker creates a checker over the device report store.
func NewHealthChecker(devices store.DeviceStore, logger *log.Logger, opts ...Option) *HealthChecker {
	if logger == nil {
		logger = log.Default()
	}
	h := &HealthChecker{
		devices:    devices,
		logger:     logger,
		thresholds: DefaultThresholds,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.batchOpts.Logger = logger
	return h
}

// RunBatchHealthCheck checks every device and returns one result per id,
// in input order. A failed fetch yields an unhealthy result with the error
// recorded instead of aborting the batch.
func (h *HealthChecker) RunBatchHealthCheck(ctx context.Context, deviceIDs []uuid.UUID) []models.HealthResult {
	detailed := batch.ProcessDetailed(ctx, h.batchOpts, deviceIDs, func(ctx context.Context, id uuid.UUID) (models.HealthResult, error) {
		return h.checkDevice(ctx, id)
	})

	results := make([]models.HealthResult, len(detailed))
	unhealthy, failed := 0, 0
	for i, r := range detailed {
		if r.Err != nil {
			failed++
			results[i] = models.HealthResult{DeviceID: deviceIDs[i], Healthy: false, Err: r.Err.Error()}
		} else {
			results[i] = r.Value
		}
		if !results[i].Healthy {
			unhealthy++
			h.publishUnhealthy(ctx, results[i])
		}
	}
	h.metrics.AddBatchItemFailures(failed)
	h.metrics.SetUnhealthyDevices(unhealthy)
	return results
}

// checkDevice fetches the latest report through the agent breaker and
// classifies it against the thresholds.
func (h *HealthChecker) checkDevice(ctx context.Context, id uuid.UUID) (models.HealthResult, error) {
	var report *models.DeviceReport
	fetch := func() error {
		var err error
		report, err = h.devices.LatestReport(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			// A device without reports is unhealthy, not a collaborator
			// failure; it must not trip the breaker or burn retries.
			report = nil
			return nil
		}
		return err
	}

	var err error
	if h.agent != nil {
		err = h.agent.Do(fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		return models.HealthResult{}, fmt.Errorf("failed to fetch report: %w", err)
	}
	if report == nil {
		return models.HealthResult{DeviceID: id, Healthy: false, Err: "no report"}, nil
	}

	healthy := report.CPUPercent < h.thresholds.CPULimit &&
		report.MemoryPercent < h.thresholds.MemoryLimit &&
		report.DiskPercent < h.thresholds.DiskLimit

	return models.HealthResult{
		DeviceID: id,
		Hostname: report.Hostname,
		Healthy:  healthy,
		Report:   report,
	}, nil
}

func (h *HealthChecker) publishUnhealthy(ctx context.Context, result models.HealthResult) {
	if h.hub == nil {
		return
	}
	id := result.DeviceID
	h.hub.Publish(ctx, events.Event{
		Kind:     events.KindDeviceUnhealthy,
		At:       time.Now(),
		DeviceID: &id,
		Message:  fmt.Sprintf("Device %s failed health check", result.Hostname),
	})
}
