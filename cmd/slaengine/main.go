// Command slaengine runs the service level engine: periodic SLA
// evaluation, breach/escalation sweeps and fleet health checks, with a
// small observability listener for metrics and the SLA dashboard.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gotrs-io/slaengine/internal/batch"
	"github.com/gotrs-io/slaengine/internal/breaker"
	"github.com/gotrs-io/slaengine/internal/config"
	"github.com/gotrs-io/slaengine/internal/escalation"
	"github.com/gotrs-io/slaengine/internal/events"
	"github.com/gotrs-io/slaengine/internal/metrics"
	"github.com/gotrs-io/slaengine/internal/monitor"
	"github.com/gotrs-io/slaengine/internal/runner"
	"github.com/gotrs-io/slaengine/internal/sla"
	"github.com/gotrs-io/slaengine/internal/store"
	"github.com/gotrs-io/slaengine/internal/timeutil"
)

func main() {
	configPath := flag.String("config", "", "directory containing slaengine.yaml")
	flag.Parse()

	logger := log.New(os.Stdout, "[SLAENGINE] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	hub := events.NewHub(logger)
	hub.Subscribe("audit-log", nil, func(_ context.Context, e events.Event) error {
		logger.Printf("event %s: %s", e.Kind, e.Message)
		return nil
	})

	breakerGauge := func(name string, to breaker.State) {
		m.SetBreakerState(name, stateValue(to))
	}
	agentBreaker := breaker.New("agent", cfg.Breaker.AgentThreshold, cfg.Breaker.AgentTimeout, logger, breakerGauge)
	persistenceBreaker := breaker.New("persistence", cfg.Breaker.PersistenceThreshold, cfg.Breaker.PersistenceTimeout, logger, breakerGauge)

	calendar, err := timeutil.NewBusinessCalendarFromConfig(cfg.Calendar.WorkingHours, cfg.Calendar.Holidays, cfg.Calendar.OneTimeHolidays)
	if err != nil {
		logger.Fatalf("failed to build business calendar: %v", err)
	}

	// In-memory collaborator stand-ins. Production deployments replace
	// these with clients for the real ticket/alert/device stores.
	policyStore := store.NewMemoryPolicyStore()
	ticketStore := store.NewMemoryTicketStore()
	alertStore := store.NewMemoryAlertStore()
	deviceStore := store.NewMemoryDeviceStore()

	batchOpts := batch.Options{
		BatchSize:     cfg.Batch.Size,
		RetryAttempts: cfg.Batch.RetryAttempts,
		BaseBackoff:   cfg.Batch.BaseBackoff,
		Logger:        logger,
	}

	evaluator := sla.NewEvaluator(policyStore, ticketStore, logger,
		sla.WithBreaker(persistenceBreaker),
		sla.WithMetrics(m),
		sla.WithBatchOptions(batchOpts),
	)

	escalator := escalation.NewService(alertStore, ticketStore, evaluator, hub,
		escalation.Config{
			AlertEscalationMinutes: cfg.Engine.AlertEscalationMinutes,
			Requester:              cfg.Engine.Requester,
		},
		logger,
		escalation.WithBreaker(persistenceBreaker),
		escalation.WithMetrics(m),
		escalation.WithCalendar(calendar),
	)

	health := monitor.NewHealthChecker(deviceStore, logger,
		monitor.WithBreaker(agentBreaker),
		monitor.WithMetrics(m),
		monitor.WithHub(hub),
		monitor.WithBatchOptions(batchOpts),
		monitor.WithThresholds(monitor.Thresholds{
			CPULimit:    cfg.Health.CPULimit,
			MemoryLimit: cfg.Health.MemoryLimit,
			DiskLimit:   cfg.Health.DiskLimit,
		}),
	)

	tasks := runner.NewTaskRegistry()
	tasks.Register(&runner.FuncTask{
		TaskName:     "escalation_sweep",
		CronSchedule: cfg.Engine.SweepSchedule,
		RunTimeout:   cfg.Engine.TaskTimeout,
		Fn: func(ctx context.Context) error {
			result, err := escalator.CheckAndEscalate(ctx)
			logger.Printf("sweep: scanned=%d escalated=%d suppressed=%d failed=%d",
				result.Scanned, result.Escalated, result.Suppressed, result.Failed)
			return err
		},
	})
	tasks.Register(&runner.FuncTask{
		TaskName:     "sla_evaluation",
		CronSchedule: cfg.Engine.EvaluationSchedule,
		RunTimeout:   cfg.Engine.TaskTimeout,
		Fn: func(ctx context.Context) error {
			n, err := evaluator.EvaluateAll(ctx)
			logger.Printf("evaluation: %d tickets evaluated", n)
			return err
		},
	})
	tasks.Register(&runner.FuncTask{
		TaskName:     "fleet_health",
		CronSchedule: cfg.Engine.HealthSchedule,
		RunTimeout:   cfg.Engine.TaskTimeout,
		Fn: func(ctx context.Context) error {
			results := health.RunBatchHealthCheck(ctx, deviceStore.DeviceIDs())
			unhealthy := 0
			for _, r := range results {
				if !r.Healthy {
					unhealthy++
				}
			}
			logger.Printf("fleet health: %d devices checked, %d unhealthy", len(results), unhealthy)
			return nil
		},
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, evaluator.DashboardData(r.Context()))
	})
	mux.HandleFunc("/breakers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []breaker.Metrics{agentBreaker.Metrics(), persistenceBreaker.Metrics()})
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		logger.Printf("observability listener on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("listener error: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := runner.NewRunner(tasks, logger).Start(ctx); err != nil && err != context.Canceled {
		logger.Fatalf("runner failed: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}

func stateValue(s breaker.State) float64 {
	switch s {
	case breaker.StateOpen:
		return 2
	case breaker.StateHalfOpen:
		return 1
	default:
		return 0
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
