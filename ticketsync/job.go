package ticketsync

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/showbooker/booking_backend/config"
	"bitbucket.org/showbooker/booking_backend/models"
	"bitbucket.org/showbooker/booking_backend/platforms"
	"bitbucket.org/showbooker/booking_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SyncResult is the per-config outcome of one ticket-sync run.
type SyncResult struct {
	EventID  string `json:"eventId"`
	Platform string `json:"platform"`
	Synced   bool   `json:"synced"`
	Error    string `json:"error,omitempty"`
}

// RunTicketSync refreshes the canonical per-platform summaries for events in
// the working window. It runs on its own cadence, independent of
// reconciliation: this path feeds the display summary, reconciliation
// re-fetches the platform itself so its cross-check stays meaningful. The two
// deliberately share adapters but not results.
func RunTicketSync(ctx context.Context, db *gorm.DB, registry *platforms.Registry, logger *logrus.Logger) []SyncResult {
	now := time.Now()
	from := now.Add(-7 * 24 * time.Hour)
	to := now.Add(30 * 24 * time.Hour)

	var configs []models.PlatformConfig
	err := db.WithContext(ctx).
		Where("event_id IN (SELECT id FROM events WHERE event_date BETWEEN ? AND ?)", from, to).
		Order("event_id").
		Find(&configs).Error
	if err != nil {
		config.LogError(logger, "job.go", "RunTicketSync", "listing platform configs", nil, err)
		return nil
	}

	results := make([]SyncResult, 0, len(configs))
	for _, cfg := range configs {
		if ctx.Err() != nil {
			break
		}
		result := SyncResult{EventID: cfg.EventID, Platform: cfg.Platform}

		if err := syncOne(ctx, db, registry, cfg); err != nil {
			result.Error = err.Error()
			config.LogError(logger, "job.go", "RunTicketSync", "syncing platform summary", cfg, err)
		} else {
			result.Synced = true
		}
		results = append(results, result)
	}

	logger.WithFields(logrus.Fields{
		"module":  "ticketsync",
		"count":   len(results),
		"elapsed": time.Since(now).String(),
	}).Info("ticket sync run finished")
	return results
}

func syncOne(ctx context.Context, db *gorm.DB, registry *platforms.Registry, cfg models.PlatformConfig) error {
	adapter, err := registry.Get(cfg.Platform)
	if err != nil {
		return err
	}

	// Short snapshot cache so back-to-back triggers don't hammer the
	// platform APIs. Reconciliation never reads this cache.
	cacheKey := "ticketsync:snapshot:" + cfg.Platform + ":" + cfg.ExternalEventID
	var snapshot platforms.Snapshot
	hit, err := config.GetRedisObject(cacheKey, &snapshot)
	if err != nil {
		hit = false
	}
	if !hit {
		snapshot, err = adapter.FetchSnapshot(ctx, cfg.ExternalEventID)
		if err != nil {
			return err
		}
		ttl := utils.DurationSecondsFromEnv("TICKET_SYNC_SNAPSHOT_CACHE_SECONDS", 5*time.Minute)
		_ = config.SetRedisObject(cacheKey, snapshot, ttl)
	}

	extra, _ := json.Marshal(map[string]interface{}{
		"orders_count": snapshot.OrdersCount,
		"fees":         snapshot.Fees,
		"net_revenue":  snapshot.NetRevenue,
	})
	summary := BuildSummary(cfg.EventID, cfg.Platform, cfg.ExternalEventID, snapshot, extra, time.Now())
	return UpsertPlatformSummary(ctx, db, summary)
}
