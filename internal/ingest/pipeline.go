package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Dominicksam/SmartLiving/internal/fanout"
	"github.com/Dominicksam/SmartLiving/internal/models"
	"github.com/Dominicksam/SmartLiving/internal/registry"

	"github.com/google/uuid"
)

// ErrInvalidEvent is returned for raw events missing a device id or
// message type.
var ErrInvalidEvent = errors.New("invalid telemetry event")

// RawTelemetryEvent is the logical inbound shape delivered by the device
// transport. A missing timestamp defaults to receipt time; the value is
// kept raw so a non-numeric payload degrades to an informational event
// instead of failing the unmarshal.
type RawTelemetryEvent struct {
	DeviceID       string          `json:"deviceId"`
	Timestamp      *time.Time      `json:"timestamp,omitempty"`
	MessageType    string          `json:"messageType"`
	Value          json.RawMessage `json:"value,omitempty"`
	Unit           string          `json:"unit,omitempty"`
	AdditionalData json.RawMessage `json:"additionalData,omitempty"`
}

// DeviceRegistry resolves devices and records presence
type DeviceRegistry interface {
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	UpsertPresence(ctx context.Context, id string, seenAt time.Time) error
}

// TelemetryStore appends telemetry events
type TelemetryStore interface {
	InsertTelemetry(ctx context.Context, ev *models.TelemetryEvent) error
}

// Broadcaster fans events out to live subscribers, at most once
type Broadcaster interface {
	PublishToAll(event string, payload any)
}

// EvaluationSink hands a persisted event to the rule evaluator. The
// hand-off is detached: evaluation failures never reach the caller.
type EvaluationSink interface {
	EnqueueEvaluation(ctx context.Context, ev models.TelemetryEvent) error
}

// ReadingCache keeps the latest reading per device for fast API reads
type ReadingCache interface {
	SetLastReading(ctx context.Context, ev models.TelemetryEvent) error
}

// Pipeline turns one raw device event into a durable record, a presence
// update, a broadcast and a detached rule evaluation.
type Pipeline struct {
	registry  DeviceRegistry
	telemetry TelemetryStore
	fanout    Broadcaster
	sink      EvaluationSink
	cache     ReadingCache
	now       func() time.Time
}

// NewPipeline wires the pipeline's collaborators. cache may be nil.
func NewPipeline(reg DeviceRegistry, telemetry TelemetryStore, fan Broadcaster, sink EvaluationSink, cache ReadingCache) *Pipeline {
	return &Pipeline{
		registry:  reg,
		telemetry: telemetry,
		fanout:    fan,
		sink:      sink,
		cache:     cache,
		now:       time.Now,
	}
}

// Ingest processes one inbound telemetry event. Only validation errors,
// unknown devices and the durable write failure are surfaced; everything
// after the telemetry append is best-effort.
func (p *Pipeline) Ingest(ctx context.Context, raw RawTelemetryEvent) error {
	if raw.DeviceID == "" || raw.MessageType == "" {
		return fmt.Errorf("%w: deviceId and messageType are required", ErrInvalidEvent)
	}

	ts := p.now().UTC()
	if raw.Timestamp != nil {
		ts = raw.Timestamp.UTC()
	}

	if _, err := p.registry.GetDevice(ctx, raw.DeviceID); err != nil {
		if errors.Is(err, registry.ErrDeviceNotFound) {
			return err
		}
		return fmt.Errorf("resolve device %s: %w", raw.DeviceID, err)
	}

	ev := models.TelemetryEvent{
		ID:             uuid.NewString(),
		DeviceID:       raw.DeviceID,
		Timestamp:      ts,
		MessageType:    raw.MessageType,
		Value:          coerceValue(raw.Value),
		Unit:           raw.Unit,
		AdditionalData: raw.AdditionalData,
	}

	if err := p.telemetry.InsertTelemetry(ctx, &ev); err != nil {
		return fmt.Errorf("persist telemetry: %w", err)
	}

	// The event is durable from here on. A stale event still proves the
	// device is alive, so presence is updated unconditionally.
	if err := p.registry.UpsertPresence(ctx, ev.DeviceID, ev.Timestamp); err != nil {
		slog.Warn("presence update failed", "device_id", ev.DeviceID, "error", err)
	}

	if p.cache != nil {
		if err := p.cache.SetLastReading(ctx, ev); err != nil {
			slog.Warn("last-reading cache write failed", "device_id", ev.DeviceID, "error", err)
		}
	}

	p.fanout.PublishToAll(fanout.EventTelemetryUpdate, fanout.TelemetryUpdate{
		DeviceID:       ev.DeviceID,
		MessageType:    ev.MessageType,
		Value:          ev.Value,
		Unit:           ev.Unit,
		Timestamp:      ev.Timestamp,
		AdditionalData: ev.AdditionalData,
	})
	p.fanout.PublishToAll(fanout.EventDeviceStatusUpdate, fanout.DeviceStatusUpdate{
		DeviceID: ev.DeviceID,
		IsOnline: true,
		LastSeen: ev.Timestamp,
	})

	if err := p.sink.EnqueueEvaluation(ctx, ev); err != nil {
		slog.Error("rule evaluation hand-off failed", "device_id", ev.DeviceID, "event_id", ev.ID, "error", err)
	}

	return nil
}

// coerceValue parses a raw JSON value into a float where possible.
// Numbers and numeric strings are accepted; anything else leaves the
// event informational.
func coerceValue(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case float64:
		return &x
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return &f
		}
	}
	return nil
}
