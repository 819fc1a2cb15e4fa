package reconcile

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"bitbucket.org/showbooker/booking_backend/config"
	"bitbucket.org/showbooker/booking_backend/models"
	"bitbucket.org/showbooker/booking_backend/utils"
	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"
)

type pubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// SchedulePayload is what lands on the reconciliation topic: Cloud Scheduler
// publishes empty payloads, the async RPC path publishes targeted ones. All
// fields are optional; a missing mode means scheduled.
type SchedulePayload struct {
	EventID  string `json:"event_id"`
	Platform string `json:"platform"`
	Mode     string `json:"mode,omitempty"`
}

// PublishScheduledRun enqueues a scheduled batch on the reconciliation topic.
func PublishScheduledRun(ctx context.Context, payload SchedulePayload) error {
	topicName := strings.TrimSpace(os.Getenv("RECONCILE_TOPIC"))
	if topicName == "" {
		topicName = "ticket-reconciliation"
	}

	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}

	topic := client.Topic(topicName)
	if utils.BoolFromEnv("RECONCILE_CREATE_TOPIC", false) {
		topic, err = config.CreateTopicIfNotExists(client, topicName)
		if err != nil {
			return err
		}
	}

	data, _ := json.Marshal(payload)
	res := topic.Publish(ctx, &pubsub.Message{Data: data})
	_, err = res.Get(ctx)
	return err
}

// PubSubPushHandler receives scheduler-triggered runs. Always acks (204):
// a failed batch is recorded in report rows, and redelivery would only stack
// runs behind the redundancy guard.
func PubSubPushHandler(o *Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !utils.BoolFromEnv("ENABLE_RECONCILE_PUBSUB_PUSH_ENDPOINT", true) {
			c.Status(204)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(204)
			return
		}

		var envelope pubSubPushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			c.Status(204)
			return
		}

		var payload SchedulePayload
		if len(envelope.Message.Data) > 0 {
			if err := json.Unmarshal(envelope.Message.Data, &payload); err != nil {
				c.Status(204)
				return
			}
		}

		mode := payload.Mode
		if mode == "" {
			mode = models.TriggerModeScheduled
		}
		ctx := utils.SetTriggerModeInContext(c.Request.Context(), mode)
		_ = o.Run(ctx, RunRequest{
			EventID:  payload.EventID,
			Platform: payload.Platform,
			Mode:     mode,
		})
		c.Status(204)
	}
}
