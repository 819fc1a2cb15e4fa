package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/showbooker/booking_backend/models"
	"bitbucket.org/showbooker/booking_backend/platforms"
	"bitbucket.org/showbooker/booking_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrStoreUnavailable wraps any local data-store failure so callers can
// classify it without knowing the driver.
var ErrStoreUnavailable = errors.New("local data store unavailable")

// ErrReportPersistence marks failures writing report rows specifically.
// A job that cannot open or close its report is a bookkeeping failure, not
// a data failure.
var ErrReportPersistence = errors.New("report persistence failed")

// Working window for automatic event selection: recently finished shows are
// still worth reconciling for a week, upcoming shows for a month out.
const (
	candidateWindowPast   = 7 * 24 * time.Hour
	candidateWindowFuture = 30 * 24 * time.Hour
)

// Store is everything the orchestrator needs from persistence. The gorm
// implementation below is the real one; tests substitute fakes.
type Store interface {
	// ListCandidateEvents returns events whose date falls inside the working
	// window and that have at least one platform config.
	ListCandidateEvents(ctx context.Context, now time.Time) ([]models.Event, error)
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	ListPlatformConfigs(ctx context.Context, eventID string) ([]models.PlatformConfig, error)

	// LatestReport returns the most recently started report for the event,
	// or nil if none exists. Used by the redundancy guard.
	LatestReport(ctx context.Context, eventID string) (*models.ReconciliationReport, error)
	OpenReport(ctx context.Context, report *models.ReconciliationReport) error
	CloseReport(ctx context.Context, report *models.ReconciliationReport) error
	CreateDiscrepancies(ctx context.Context, discrepancies []models.Discrepancy) error

	// LocalSnapshot aggregates confirmed local sale rows for (event, platform):
	// tickets sold = row count, gross revenue = sum(total_amount).
	LocalSnapshot(ctx context.Context, eventID string, platform string) (platforms.Snapshot, error)

	// UpdateEventSyncStatus propagates the verdict onto the event's own
	// denormalized fields. Success path only.
	UpdateEventSyncStatus(ctx context.Context, eventID string, health string, at time.Time) error
	AppendAuditLog(ctx context.Context, entry *models.AuditLogEntry) error
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func reportErr(err error) error {
	return fmt.Errorf("%w: %v", ErrReportPersistence, err)
}

func (s *gormStore) ListCandidateEvents(ctx context.Context, now time.Time) ([]models.Event, error) {
	from := now.Add(-candidateWindowPast)
	to := now.Add(candidateWindowFuture)

	var events []models.Event
	err := s.db.WithContext(ctx).
		Where("event_date BETWEEN ? AND ?", from, to).
		Where("id IN (SELECT DISTINCT event_id FROM platform_configs)").
		Order("event_date").
		Find(&events).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return events, nil
}

func (s *gormStore) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	err := s.db.WithContext(ctx).Where("id = ?", eventID).Take(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("event %s: %w", eventID, utils.ErrorRecordNotFound)
		}
		return nil, storeErr(err)
	}
	return &event, nil
}

func (s *gormStore) ListPlatformConfigs(ctx context.Context, eventID string) ([]models.PlatformConfig, error) {
	var configs []models.PlatformConfig
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("platform").
		Find(&configs).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return configs, nil
}

func (s *gormStore) LatestReport(ctx context.Context, eventID string) (*models.ReconciliationReport, error) {
	var report models.ReconciliationReport
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("start_time DESC").
		Take(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storeErr(err)
	}
	return &report, nil
}

func (s *gormStore) OpenReport(ctx context.Context, report *models.ReconciliationReport) error {
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return reportErr(err)
	}
	return nil
}

func (s *gormStore) CloseReport(ctx context.Context, report *models.ReconciliationReport) error {
	updates := map[string]interface{}{
		"status":                 report.Status,
		"end_time":               report.EndTime,
		"total_local_sales":      report.TotalLocalSales,
		"total_platform_sales":   report.TotalPlatformSales,
		"total_local_revenue":    report.TotalLocalRevenue,
		"total_platform_revenue": report.TotalPlatformRevenue,
		"discrepancies_found":    report.DiscrepanciesFound,
		"sync_health":            report.SyncHealth,
		"error_message":          report.ErrorMessage,
	}
	err := s.db.WithContext(ctx).
		Model(&models.ReconciliationReport{}).
		Where("id = ? AND status = ?", report.ID, models.ReportStatusRunning).
		Updates(updates).Error
	if err != nil {
		return reportErr(err)
	}
	return nil
}

func (s *gormStore) CreateDiscrepancies(ctx context.Context, discrepancies []models.Discrepancy) error {
	if len(discrepancies) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&discrepancies).Error; err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *gormStore) LocalSnapshot(ctx context.Context, eventID string, platform string) (platforms.Snapshot, error) {
	var agg struct {
		Cnt   int
		Total decimal.Decimal
	}
	err := s.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) AS cnt, COALESCE(SUM(total_amount), 0) AS total
		FROM ticket_sales
		WHERE event_id = ? AND platform = ? AND status = ?
	`, eventID, platform, models.TicketSaleStatusConfirmed).Scan(&agg).Error
	if err != nil {
		return platforms.Snapshot{}, storeErr(err)
	}
	return platforms.Snapshot{
		TicketsSold:  agg.Cnt,
		GrossRevenue: agg.Total,
		OrdersCount:  agg.Cnt,
	}, nil
}

func (s *gormStore) UpdateEventSyncStatus(ctx context.Context, eventID string, health string, at time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", eventID).
		Updates(map[string]interface{}{
			"sync_health":            health,
			"last_reconciliation_at": at,
		}).Error
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *gormStore) AppendAuditLog(ctx context.Context, entry *models.AuditLogEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return storeErr(err)
	}
	return nil
}
