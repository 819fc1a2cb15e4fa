package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/showbooker/booking_backend/config"
	"bitbucket.org/showbooker/booking_backend/models"
	"bitbucket.org/showbooker/booking_backend/platforms"
	"bitbucket.org/showbooker/booking_backend/reconcile"
	"bitbucket.org/showbooker/booking_backend/ticketsync"
	"bitbucket.org/showbooker/booking_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func main() {
	port := os.Getenv("BOOKING_SYNC_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	creds := platforms.CredentialsFromEnv()
	registry := platforms.NewRegistry(creds, nil)
	if len(registry.Platforms()) == 0 {
		logger.WithFields(logrus.Fields{"field": "platforms"}).Warn("no platform credentials configured; all platform jobs will fail with CredentialMissing")
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = utils.SplitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))
	r.Use(requestLogger(logger))
	r.Use(gin.Recovery())

	buildOrchestrator := func() *reconcile.Orchestrator {
		store := reconcile.NewStore(config.GetDB())
		return reconcile.NewOrchestrator(store, registry, logger, config.GetRedisLock())
	}

	// Reconciliation endpoints. The orchestrator is built per request since
	// DB/Redis connect after the server starts listening.
	r.POST("/api/reconciliation/run", func(c *gin.Context) {
		reconcile.RunHandler(buildOrchestrator())(c)
	})
	r.GET("/api/reconciliation/reports", reconcile.ReportHistoryHandler())
	r.GET("/api/reconciliation/reports/:id", reconcile.ReportDetailHandler())
	r.GET("/api/reconciliation/discrepancies", reconcile.DiscrepanciesHandler())
	r.GET("/api/reconciliation/audit-log", reconcile.AuditLogHandler())

	// Ticket sync endpoints (display summary refresh, own cadence).
	r.POST("/api/ticket-sync/run", ticketsync.TriggerHandler(registry))

	// Pub/Sub push endpoints for the scheduled triggers.
	r.POST("/pubsub/ticket-reconciliation", func(c *gin.Context) {
		reconcile.PubSubPushHandler(buildOrchestrator())(c)
	})
	r.POST("/pubsub/ticket-sync", ticketsync.PubSubPushHandler(registry))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	select {
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithFields(logrus.Fields{"field": "server"}).Error(err)
		}
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		logger.WithFields(logrus.Fields{
			"status":         c.Writer.Status(),
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"latency":        latency.String(),
			"correlation_id": cid,
		}).Info("request")
	}
}
