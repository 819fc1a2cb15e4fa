package ticketsync

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"

	"bitbucket.org/showbooker/booking_backend/config"
	"bitbucket.org/showbooker/booking_backend/platforms"
	"bitbucket.org/showbooker/booking_backend/utils"
	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"
)

// publishSyncRun is swapped out in tests.
var publishSyncRun = PublishSyncRun

// TriggerHandler runs a ticket sync and returns the per-config results.
// Admin tooling entry point; ?async=true queues the run on the ticket-sync
// topic instead.
func TriggerHandler(registry *platforms.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(strings.TrimSpace(c.Query("async")), "true") {
			if err := publishSyncRun(c.Request.Context()); err != nil {
				c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"success": true, "queued": true})
			return
		}

		db := config.GetDB()
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db not ready"})
			return
		}
		results := RunTicketSync(c.Request.Context(), db, registry, config.GetLogger())
		c.JSON(http.StatusOK, gin.H{"success": true, "results": results})
	}
}

// PublishSyncRun enqueues a ticket-sync run on its own topic. The scheduler
// cadence here is independent of reconciliation's.
func PublishSyncRun(ctx context.Context) error {
	topicName := strings.TrimSpace(os.Getenv("TICKET_SYNC_TOPIC"))
	if topicName == "" {
		topicName = "ticket-sync"
	}

	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}

	topic := client.Topic(topicName)
	if utils.BoolFromEnv("TICKET_SYNC_CREATE_TOPIC", false) {
		topic, err = config.CreateTopicIfNotExists(client, topicName)
		if err != nil {
			return err
		}
	}

	res := topic.Publish(ctx, &pubsub.Message{Data: []byte("{}")})
	_, err = res.Get(ctx)
	return err
}

// PubSubPushHandler receives scheduler-triggered ticket syncs. Always acks.
func PubSubPushHandler(registry *platforms.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !utils.BoolFromEnv("ENABLE_TICKET_SYNC_PUBSUB_PUSH_ENDPOINT", true) {
			c.Status(204)
			return
		}

		// Envelope content is irrelevant; the trigger is the message itself.
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(204)
			return
		}

		db := config.GetDB()
		if db == nil {
			c.Status(204)
			return
		}
		_ = RunTicketSync(c.Request.Context(), db, registry, config.GetLogger())
		c.Status(204)
	}
}
