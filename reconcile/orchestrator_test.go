package reconcile

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"bitbucket.org/showbooker/booking_backend/models"
	"bitbucket.org/showbooker/booking_backend/platforms"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// NOTE: These tests are intentionally DB-free. The gorm Store is substituted
// with an in-memory fake so the orchestrator's sequencing, failure isolation
// and report lifecycle can be checked without MySQL.

type fakeStore struct {
	mu sync.Mutex

	events  []models.Event
	configs map[string][]models.PlatformConfig
	latest  map[string]*models.ReconciliationReport
	local   map[string]platforms.Snapshot

	opened        []models.ReconciliationReport
	closed        []models.ReconciliationReport
	discrepancies []models.Discrepancy
	audits        []models.AuditLogEntry
	healthWrites  []string

	listErr   error
	statusErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		configs: map[string][]models.PlatformConfig{},
		latest:  map[string]*models.ReconciliationReport{},
		local:   map[string]platforms.Snapshot{},
	}
}

func (s *fakeStore) ListCandidateEvents(ctx context.Context, now time.Time) ([]models.Event, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.events, nil
}

func (s *fakeStore) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	for i := range s.events {
		if s.events[i].ID == eventID {
			return &s.events[i], nil
		}
	}
	return nil, errors.New("event " + eventID + ": record not found")
}

func (s *fakeStore) ListPlatformConfigs(ctx context.Context, eventID string) ([]models.PlatformConfig, error) {
	return s.configs[eventID], nil
}

func (s *fakeStore) LatestReport(ctx context.Context, eventID string) (*models.ReconciliationReport, error) {
	return s.latest[eventID], nil
}

func (s *fakeStore) OpenReport(ctx context.Context, report *models.ReconciliationReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = append(s.opened, *report)
	return nil
}

func (s *fakeStore) CloseReport(ctx context.Context, report *models.ReconciliationReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = append(s.closed, *report)
	return nil
}

func (s *fakeStore) CreateDiscrepancies(ctx context.Context, discrepancies []models.Discrepancy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discrepancies = append(s.discrepancies, discrepancies...)
	return nil
}

func (s *fakeStore) LocalSnapshot(ctx context.Context, eventID string, platform string) (platforms.Snapshot, error) {
	return s.local[eventID+"|"+platform], nil
}

func (s *fakeStore) UpdateEventSyncStatus(ctx context.Context, eventID string, health string, at time.Time) error {
	if s.statusErr != nil {
		return s.statusErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthWrites = append(s.healthWrites, health)
	return nil
}

func (s *fakeStore) AppendAuditLog(ctx context.Context, entry *models.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, *entry)
	return nil
}

type fakeAdapter struct {
	platform string
	snapshot platforms.Snapshot
	err      error
}

func (a *fakeAdapter) Platform() string { return a.platform }

func (a *fakeAdapter) FetchSnapshot(ctx context.Context, externalEventID string) (platforms.Snapshot, error) {
	if a.err != nil {
		return platforms.Snapshot{}, a.err
	}
	return a.snapshot, nil
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testOrchestrator(store Store, adapters ...platforms.Adapter) *Orchestrator {
	registry := platforms.NewEmptyRegistry()
	for _, a := range adapters {
		registry.Register(a)
	}
	o := NewOrchestrator(store, registry, discardLogger(), nil)
	o.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	return o
}

func remoteSnap(sold int, gross string) platforms.Snapshot {
	return platforms.Snapshot{TicketsSold: sold, GrossRevenue: decimal.RequireFromString(gross)}
}

func resultFor(t *testing.T, resp RunResponse, platform string) JobResult {
	t.Helper()
	for _, r := range resp.Results {
		if r.Platform == platform {
			return r
		}
	}
	t.Fatalf("no result for platform %s in %+v", platform, resp.Results)
	return JobResult{}
}

func TestRun_TwoPlatforms_WorstHealthWins(t *testing.T) {
	store := newFakeStore()
	store.events = []models.Event{{ID: "evt-1", Name: "Friday Late Show"}}
	store.configs["evt-1"] = []models.PlatformConfig{
		{EventID: "evt-1", Platform: models.PlatformEventbrite, ExternalEventID: "eb-1"},
		{EventID: "evt-1", Platform: models.PlatformHumanitix, ExternalEventID: "hx-1"},
	}
	store.local["evt-1|"+models.PlatformHumanitix] = remoteSnap(100, "2500.00")
	store.local["evt-1|"+models.PlatformEventbrite] = remoteSnap(80, "2000.00")

	o := testOrchestrator(store,
		// Humanitix agrees with local data.
		&fakeAdapter{platform: models.PlatformHumanitix, snapshot: remoteSnap(100, "2500.00")},
		// Eventbrite is off by 20 tickets and 500 in revenue.
		&fakeAdapter{platform: models.PlatformEventbrite, snapshot: remoteSnap(60, "1500.00")},
	)

	resp := o.Run(context.Background(), RunRequest{EventID: "evt-1", Mode: "manual"})
	if !resp.Success {
		t.Fatalf("expected success, got error %q", resp.Error)
	}
	if resp.ProcessedEvents != 1 {
		t.Fatalf("expected 1 processed event, got %d", resp.ProcessedEvents)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 job results, got %d", len(resp.Results))
	}

	hx := resultFor(t, resp, models.PlatformHumanitix)
	if hx.Status != JobStatusCompleted || hx.SyncHealth != models.SyncHealthHealthy {
		t.Fatalf("humanitix job: %+v", hx)
	}
	if hx.Discrepancies == nil || *hx.Discrepancies != 0 {
		t.Fatalf("humanitix should have 0 discrepancies: %+v", hx)
	}

	eb := resultFor(t, resp, models.PlatformEventbrite)
	if eb.Status != JobStatusCompleted || eb.SyncHealth != models.SyncHealthCritical {
		t.Fatalf("eventbrite job: %+v", eb)
	}
	if eb.Discrepancies == nil || *eb.Discrepancies != 2 {
		t.Fatalf("eventbrite should have 2 discrepancies: %+v", eb)
	}

	if len(store.opened) != 2 || len(store.closed) != 2 {
		t.Fatalf("expected 2 reports opened and closed, got %d/%d", len(store.opened), len(store.closed))
	}
	for _, report := range store.closed {
		if report.Status != models.ReportStatusCompleted {
			t.Fatalf("report %s closed as %s", report.Platform, report.Status)
		}
		if report.EndTime == nil {
			t.Fatalf("completed report %s missing end time", report.Platform)
		}
	}

	// The denormalized event verdict is the worst across both platforms.
	if len(store.healthWrites) == 0 {
		t.Fatal("expected event sync status writes")
	}
	if last := store.healthWrites[len(store.healthWrites)-1]; last != models.SyncHealthCritical {
		t.Fatalf("final event health = %s, want critical", last)
	}

	if len(store.audits) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(store.audits))
	}
	if store.audits[0].Action != "reconciliation_run" {
		t.Fatalf("unexpected audit action %s", store.audits[0].Action)
	}
}

func TestRun_UpstreamFailureIsolatedPerPlatform(t *testing.T) {
	store := newFakeStore()
	store.events = []models.Event{{ID: "evt-1"}}
	store.configs["evt-1"] = []models.PlatformConfig{
		{EventID: "evt-1", Platform: models.PlatformEventbrite, ExternalEventID: "eb-1"},
		{EventID: "evt-1", Platform: models.PlatformHumanitix, ExternalEventID: "hx-1"},
	}

	upstream := &platforms.UpstreamError{Platform: models.PlatformEventbrite, Status: 503, Message: "service unavailable"}
	o := testOrchestrator(store,
		&fakeAdapter{platform: models.PlatformHumanitix, snapshot: remoteSnap(0, "0")},
		&fakeAdapter{platform: models.PlatformEventbrite, err: upstream},
	)

	resp := o.Run(context.Background(), RunRequest{EventID: "evt-1"})
	if !resp.Success {
		t.Fatalf("batch must succeed even when a job fails: %q", resp.Error)
	}

	eb := resultFor(t, resp, models.PlatformEventbrite)
	if eb.Status != JobStatusFailed {
		t.Fatalf("eventbrite job should fail, got %s", eb.Status)
	}
	if !strings.Contains(eb.Error, "503") {
		t.Fatalf("job error should carry upstream status: %q", eb.Error)
	}

	hx := resultFor(t, resp, models.PlatformHumanitix)
	if hx.Status != JobStatusCompleted {
		t.Fatalf("humanitix job should complete despite sibling failure, got %s", hx.Status)
	}

	var failed *models.ReconciliationReport
	for i := range store.closed {
		if store.closed[i].Platform == models.PlatformEventbrite {
			failed = &store.closed[i]
		}
	}
	if failed == nil {
		t.Fatal("failed job must still close its report")
	}
	if failed.Status != models.ReportStatusFailed {
		t.Fatalf("report closed as %s, want failed", failed.Status)
	}
	if failed.EndTime == nil || failed.ErrorMessage == "" {
		t.Fatalf("failed report must carry end time and error message: %+v", failed)
	}
}

func TestRun_NoPlatformConfigs_Skipped(t *testing.T) {
	store := newFakeStore()
	store.events = []models.Event{{ID: "evt-1"}}

	o := testOrchestrator(store)
	resp := o.Run(context.Background(), RunRequest{EventID: "evt-1"})

	if !resp.Success {
		t.Fatalf("expected success, got %q", resp.Error)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	r := resp.Results[0]
	if r.Status != JobStatusSkipped || r.Reason != SkipReasonNoPlatforms {
		t.Fatalf("expected skip with %q, got %+v", SkipReasonNoPlatforms, r)
	}
	if len(store.opened) != 0 {
		t.Fatalf("skip must not open a report, opened %d", len(store.opened))
	}
}

func TestRun_PlatformFilterWithNoMatch_SkipReason(t *testing.T) {
	store := newFakeStore()
	store.events = []models.Event{{ID: "evt-1"}}
	store.configs["evt-1"] = []models.PlatformConfig{
		{EventID: "evt-1", Platform: models.PlatformHumanitix, ExternalEventID: "hx-1"},
	}

	o := testOrchestrator(store, &fakeAdapter{platform: models.PlatformHumanitix, snapshot: remoteSnap(0, "0")})
	resp := o.Run(context.Background(), RunRequest{EventID: "evt-1", Platform: models.PlatformEventbrite})

	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	r := resp.Results[0]
	if r.Status != JobStatusSkipped || r.Reason != SkipReasonPlatformNotConfigured {
		t.Fatalf("event has configs, just not this platform; got %+v", r)
	}
	if r.Platform != models.PlatformEventbrite {
		t.Fatalf("skip should name the requested platform, got %q", r.Platform)
	}
	if len(store.opened) != 0 {
		t.Fatalf("skip must not open a report, opened %d", len(store.opened))
	}
}

func TestRun_ScheduledRedundancyGuard(t *testing.T) {
	store := newFakeStore()
	store.events = []models.Event{{ID: "evt-1"}}
	store.configs["evt-1"] = []models.PlatformConfig{
		{EventID: "evt-1", Platform: models.PlatformHumanitix, ExternalEventID: "hx-1"},
	}

	o := testOrchestrator(store, &fakeAdapter{platform: models.PlatformHumanitix, snapshot: remoteSnap(0, "0")})
	store.latest["evt-1"] = &models.ReconciliationReport{
		ID:        "r-prev",
		EventID:   "evt-1",
		Status:    models.ReportStatusCompleted,
		StartTime: o.now().Add(-10 * time.Minute),
	}

	resp := o.Run(context.Background(), RunRequest{EventID: "evt-1", Mode: "scheduled"})
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	r := resp.Results[0]
	if r.Status != JobStatusSkipped || r.Reason != SkipReasonRecentlyReconciled {
		t.Fatalf("expected skip with %q, got %+v", SkipReasonRecentlyReconciled, r)
	}

	// A manual run for the same event ignores the guard.
	resp = o.Run(context.Background(), RunRequest{EventID: "evt-1", Mode: "manual"})
	if resp.Results[0].Status != JobStatusCompleted {
		t.Fatalf("manual run should proceed, got %+v", resp.Results[0])
	}
}

func TestRun_EnumerationFailureAbortsBatch(t *testing.T) {
	store := newFakeStore()
	store.listErr = ErrStoreUnavailable

	o := testOrchestrator(store)
	resp := o.Run(context.Background(), RunRequest{})

	if resp.Success {
		t.Fatal("expected failure when candidate enumeration fails")
	}
	if resp.Error == "" {
		t.Fatal("expected error message on enumeration failure")
	}
	if resp.ProcessedEvents != 0 || len(resp.Results) != 0 {
		t.Fatalf("aborted batch must not report results: %+v", resp)
	}
}

func TestRun_UnknownCredential_JobFails(t *testing.T) {
	store := newFakeStore()
	store.events = []models.Event{{ID: "evt-1"}}
	store.configs["evt-1"] = []models.PlatformConfig{
		{EventID: "evt-1", Platform: models.PlatformHumanitix, ExternalEventID: "hx-1"},
	}

	// Empty registry: no credentials configured at startup.
	o := testOrchestrator(store)
	resp := o.Run(context.Background(), RunRequest{EventID: "evt-1"})

	r := resp.Results[0]
	if r.Status != JobStatusFailed {
		t.Fatalf("expected failed job for unregistered platform, got %+v", r)
	}
	if !errorContains(r.Error, "credential missing") {
		t.Fatalf("expected credential error, got %q", r.Error)
	}
	if len(store.closed) != 1 || store.closed[0].Status != models.ReportStatusFailed {
		t.Fatalf("credential failure must close the report as failed: %+v", store.closed)
	}
}

func TestRun_EventStatusWriteFailureSurfaces(t *testing.T) {
	store := newFakeStore()
	store.events = []models.Event{{ID: "evt-1"}}
	store.configs["evt-1"] = []models.PlatformConfig{
		{EventID: "evt-1", Platform: models.PlatformHumanitix, ExternalEventID: "hx-1"},
	}
	store.statusErr = errors.New("write timeout")

	o := testOrchestrator(store, &fakeAdapter{platform: models.PlatformHumanitix, snapshot: remoteSnap(0, "0")})
	resp := o.Run(context.Background(), RunRequest{EventID: "evt-1"})

	r := resp.Results[0]
	if r.Status != JobStatusCompleted {
		t.Fatalf("reconciliation itself completed, got %s", r.Status)
	}
	if !errorContains(r.Error, "event status update failed") {
		t.Fatalf("denormalized write failure must be visible in the result, got %q", r.Error)
	}
}

func TestRunRequest_Normalize(t *testing.T) {
	req := RunRequest{EventID: "  evt-1 ", Platform: " Humanitix ", Mode: "SCHEDULED"}
	req.Normalize()
	if req.EventID != "evt-1" || req.Platform != "humanitix" || req.Mode != models.TriggerModeScheduled {
		t.Fatalf("normalize: %+v", req)
	}

	req = RunRequest{Mode: "whatever"}
	req.Normalize()
	if req.Mode != models.TriggerModeManual {
		t.Fatalf("unknown mode should default to manual, got %s", req.Mode)
	}
}

func errorContains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
