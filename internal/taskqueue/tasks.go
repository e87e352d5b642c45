package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dominicksam/SmartLiving/internal/models"

	"github.com/hibiken/asynq"
)

// TypeEvaluateTelemetry is the task type for detached rule evaluation
const TypeEvaluateTelemetry = "telemetry:evaluate"

// Client enqueues rule-evaluation tasks. It is the ingestion pipeline's
// EvaluationSink: the hand-off is durable in redis, but evaluation itself
// stays fire-and-forget (no retries — re-running a matched rule would
// double-fire its actions).
type Client struct {
	client *asynq.Client
}

func NewClient(redisAddr string) *Client {
	return &Client{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

// EnqueueEvaluation schedules evaluation of one telemetry event
func (c *Client) EnqueueEvaluation(ctx context.Context, ev models.TelemetryEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode evaluation task: %w", err)
	}
	task := asynq.NewTask(TypeEvaluateTelemetry, payload)
	if _, err := c.client.EnqueueContext(ctx, task, asynq.MaxRetry(0), asynq.Timeout(30*time.Second)); err != nil {
		return fmt.Errorf("enqueue evaluation task: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
