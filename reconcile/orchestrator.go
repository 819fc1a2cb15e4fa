package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"bitbucket.org/showbooker/booking_backend/config"
	"bitbucket.org/showbooker/booking_backend/models"
	"bitbucket.org/showbooker/booking_backend/platforms"
	"bitbucket.org/showbooker/booking_backend/utils"
	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultEventConcurrency = 4
	eventLockTTL            = 5 * time.Minute
)

// Orchestrator coordinates reconciliation batches: selects events, guards
// against redundant runs, executes per-platform jobs with isolated failure
// domains, and persists the report/audit trail.
type Orchestrator struct {
	store    Store
	registry *platforms.Registry
	logger   *logrus.Logger
	locker   *redislock.Client // nil disables the distributed per-event lock
	now      func() time.Time

	eventConcurrency int
}

func NewOrchestrator(store Store, registry *platforms.Registry, logger *logrus.Logger, locker *redislock.Client) *Orchestrator {
	return &Orchestrator{
		store:            store,
		registry:         registry,
		logger:           logger,
		locker:           locker,
		now:              time.Now,
		eventConcurrency: defaultEventConcurrency,
	}
}

// Run executes one reconciliation batch to completion. Per-event and
// per-platform failures are recorded in the result list, never thrown; the
// only non-isolated failure is being unable to enumerate candidate events.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) RunResponse {
	if req.Mode == "" {
		req.Mode, _ = utils.GetTriggerModeFromContext(ctx)
	}
	req.Normalize()

	events, err := o.selectEvents(ctx, req)
	if err != nil {
		config.LogError(o.logger, "orchestrator.go", "Run", "selecting candidate events", req, err)
		return RunResponse{Success: false, Error: err.Error()}
	}

	resultsByEvent := make([][]JobResult, len(events))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.eventConcurrency)
	var mu sync.Mutex

	for i, event := range events {
		i, event := i, event
		g.Go(func() error {
			res := o.processEvent(gCtx, event, req.Platform, req.Mode)
			mu.Lock()
			resultsByEvent[i] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var results []JobResult
	for _, res := range resultsByEvent {
		results = append(results, res...)
	}

	return RunResponse{
		Success:         true,
		Mode:            req.Mode,
		ProcessedEvents: len(events),
		Results:         results,
	}
}

func (o *Orchestrator) selectEvents(ctx context.Context, req RunRequest) ([]models.Event, error) {
	if req.EventID != "" {
		event, err := o.store.GetEvent(ctx, req.EventID)
		if err != nil {
			return nil, err
		}
		return []models.Event{*event}, nil
	}
	return o.store.ListCandidateEvents(ctx, o.now())
}

// processEvent runs every platform job for one event sequentially, then
// appends one audit entry summarizing the outcome.
func (o *Orchestrator) processEvent(ctx context.Context, event models.Event, platformFilter string, mode string) []JobResult {
	if o.locker != nil {
		lock, err := o.locker.Obtain(ctx, "reconcile:event:"+event.ID, eventLockTTL, nil)
		if err != nil {
			if errors.Is(err, redislock.ErrNotObtained) {
				return []JobResult{{EventID: event.ID, Status: JobStatusSkipped, Reason: "Reconciliation already in progress"}}
			}
			return []JobResult{{EventID: event.ID, Status: JobStatusError, Error: err.Error()}}
		}
		defer func() { _ = lock.Release(context.WithoutCancel(ctx)) }()
	}

	last, err := o.store.LatestReport(ctx, event.ID)
	if err != nil {
		return []JobResult{{EventID: event.ID, Status: JobStatusError, Error: err.Error()}}
	}
	if ShouldSkipRecent(mode, last, o.now()) {
		return []JobResult{{EventID: event.ID, Status: JobStatusSkipped, Reason: SkipReasonRecentlyReconciled}}
	}

	configs, err := o.store.ListPlatformConfigs(ctx, event.ID)
	if err != nil {
		return []JobResult{{EventID: event.ID, Status: JobStatusError, Error: err.Error()}}
	}
	if len(configs) == 0 {
		return []JobResult{{EventID: event.ID, Status: JobStatusSkipped, Reason: SkipReasonNoPlatforms}}
	}
	if platformFilter != "" {
		filtered := configs[:0]
		for _, cfg := range configs {
			if cfg.Platform == platformFilter {
				filtered = append(filtered, cfg)
			}
		}
		configs = filtered
		if len(configs) == 0 {
			return []JobResult{{EventID: event.ID, Platform: platformFilter, Status: JobStatusSkipped, Reason: SkipReasonPlatformNotConfigured}}
		}
	}

	var results []JobResult
	worstHealth := ""
	for _, cfg := range configs {
		// Cooperative cancellation between jobs: an in-flight job always
		// finishes so its report is never left running.
		if ctx.Err() != nil {
			break
		}
		result := o.runJob(ctx, event, cfg)
		if result.Status == JobStatusCompleted {
			worstHealth = worseHealth(worstHealth, result.SyncHealth)
			// Denormalized read-optimization for dashboards; the write is
			// explicit and its failure lands in the job result.
			if err := o.store.UpdateEventSyncStatus(ctx, event.ID, worstHealth, o.now()); err != nil {
				result.Error = fmt.Sprintf("event status update failed: %v", err)
			}
		}
		results = append(results, result)
	}

	o.appendAudit(ctx, event.ID, mode, results)
	return results
}

// runJob is one isolated (event, platform) reconciliation: open report,
// fetch both snapshots, detect, persist findings, close report. Any error in
// the middle closes the report as failed and is reported, not thrown.
func (o *Orchestrator) runJob(ctx context.Context, event models.Event, cfg models.PlatformConfig) JobResult {
	now := o.now()
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	report := &models.ReconciliationReport{
		ID:                   uuid.NewString(),
		EventID:              event.ID,
		Platform:             cfg.Platform,
		Status:               models.ReportStatusRunning,
		StartTime:            now,
		TotalLocalRevenue:    decimal.Zero,
		TotalPlatformRevenue: decimal.Zero,
		CorrelationId:        correlationId,
	}
	if err := o.store.OpenReport(ctx, report); err != nil {
		return JobResult{EventID: event.ID, Platform: cfg.Platform, Status: JobStatusError, Error: err.Error()}
	}

	result, err := o.reconcilePlatform(ctx, report, cfg)
	if err != nil {
		end := o.now()
		report.Status = models.ReportStatusFailed
		report.EndTime = &end
		report.ErrorMessage = err.Error()
		if closeErr := o.store.CloseReport(ctx, report); closeErr != nil {
			config.LogError(o.logger, "orchestrator.go", "runJob", "closing failed report", report, closeErr)
		}
		return JobResult{EventID: event.ID, Platform: cfg.Platform, Status: JobStatusFailed, Error: err.Error()}
	}
	return result
}

func (o *Orchestrator) reconcilePlatform(ctx context.Context, report *models.ReconciliationReport, cfg models.PlatformConfig) (JobResult, error) {
	adapter, err := o.registry.Get(cfg.Platform)
	if err != nil {
		return JobResult{}, err
	}

	// The two fetches are independent reads; order does not affect output.
	local, err := o.store.LocalSnapshot(ctx, report.EventID, cfg.Platform)
	if err != nil {
		return JobResult{}, err
	}
	remote, err := adapter.FetchSnapshot(ctx, cfg.ExternalEventID)
	if err != nil {
		return JobResult{}, err
	}

	findings := Detect(local, remote)
	detectedAt := o.now()
	discrepancies := make([]models.Discrepancy, 0, len(findings))
	for _, f := range findings {
		discrepancies = append(discrepancies, models.Discrepancy{
			ID:               uuid.NewString(),
			ReportID:         report.ID,
			EventID:          report.EventID,
			Platform:         cfg.Platform,
			Type:             f.Type,
			Severity:         f.Severity,
			LocalDataJSON:    f.LocalData,
			PlatformDataJSON: f.PlatformData,
			Field:            f.Field,
			LocalValue:       f.LocalValue,
			PlatformValue:    f.PlatformValue,
			DetectedAt:       detectedAt,
		})
	}
	if err := o.store.CreateDiscrepancies(ctx, discrepancies); err != nil {
		return JobResult{}, err
	}

	health := ComputeSyncHealth(len(findings), local.TicketsSold, RevenueDiff(local, remote))

	end := o.now()
	report.Status = models.ReportStatusCompleted
	report.EndTime = &end
	report.TotalLocalSales = local.TicketsSold
	report.TotalPlatformSales = remote.TicketsSold
	report.TotalLocalRevenue = local.GrossRevenue
	report.TotalPlatformRevenue = remote.GrossRevenue
	report.DiscrepanciesFound = len(findings)
	report.SyncHealth = health
	if err := o.store.CloseReport(ctx, report); err != nil {
		return JobResult{}, err
	}

	count := len(findings)
	return JobResult{
		EventID:       report.EventID,
		Platform:      cfg.Platform,
		Status:        JobStatusCompleted,
		Discrepancies: &count,
		SyncHealth:    health,
	}, nil
}

func (o *Orchestrator) appendAudit(ctx context.Context, eventID string, mode string, results []JobResult) {
	completed, failed, skipped := 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case JobStatusCompleted:
			completed++
		case JobStatusFailed, JobStatusError:
			failed++
		case JobStatusSkipped:
			skipped++
		}
	}

	metadata, _ := json.Marshal(map[string]interface{}{
		"mode":    mode,
		"results": results,
	})
	entry := &models.AuditLogEntry{
		EventID:      eventID,
		Action:       "reconciliation_run",
		Description:  fmt.Sprintf("Reconciliation run (%s): %d completed, %d failed, %d skipped", mode, completed, failed, skipped),
		MetadataJSON: metadata,
	}
	if err := o.store.AppendAuditLog(ctx, entry); err != nil {
		config.LogError(o.logger, "orchestrator.go", "appendAudit", "appending audit entry", entry, err)
	}
}

func worseHealth(a, b string) string {
	rank := func(h string) int {
		switch h {
		case models.SyncHealthCritical:
			return 3
		case models.SyncHealthWarning:
			return 2
		case models.SyncHealthHealthy:
			return 1
		default:
			return 0
		}
	}
	if rank(a) >= rank(b) {
		return a
	}
	return b
}
