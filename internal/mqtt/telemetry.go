package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/Dominicksam/SmartLiving/internal/ingest"
	"github.com/Dominicksam/SmartLiving/internal/registry"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const telemetryTopic = "devices/+/telemetry"

// Ingestor is the pipeline surface the subscriber feeds
type Ingestor interface {
	Ingest(ctx context.Context, raw ingest.RawTelemetryEvent) error
}

// TelemetrySubscriber bridges inbound device messages into the ingestion
// pipeline. One handler invocation per message; paho runs handlers
// concurrently, so the pipeline sees arbitrary interleaving.
type TelemetrySubscriber struct {
	client   mqtt.Client
	pipeline Ingestor
}

func NewTelemetrySubscriber(client mqtt.Client, pipeline Ingestor) *TelemetrySubscriber {
	return &TelemetrySubscriber{client: client, pipeline: pipeline}
}

// Start subscribes to the device telemetry topic
func (s *TelemetrySubscriber) Start() error {
	token := s.client.Subscribe(telemetryTopic, 1, s.onMessage)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	slog.Info("subscribed to device telemetry", "topic", telemetryTopic)
	return nil
}

func (s *TelemetrySubscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	var raw ingest.RawTelemetryEvent
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		slog.Warn("telemetry payload is not valid JSON", "topic", msg.Topic(), "error", err)
		return
	}
	if raw.DeviceID == "" {
		raw.DeviceID = DeviceIDFromTopic(msg.Topic())
	}

	err := s.pipeline.Ingest(context.Background(), raw)
	switch {
	case err == nil:
	case errors.Is(err, registry.ErrDeviceNotFound), errors.Is(err, ingest.ErrInvalidEvent):
		// Dropped by design: nothing to attribute the event to.
		slog.Warn("telemetry dropped", "topic", msg.Topic(), "error", err)
	default:
		// Durable write failed. The broker's QoS redelivery is the retry
		// path; this core does not requeue.
		slog.Error("telemetry ingestion failed", "topic", msg.Topic(), "error", err)
	}
}

// DeviceIDFromTopic extracts the device id segment from devices/<id>/...
func DeviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) > 1 {
		return parts[1]
	}
	return ""
}
