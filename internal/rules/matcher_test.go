package rules

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Dominicksam/SmartLiving/internal/models"

	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 { return &v }

func tempEvent(deviceID string, value float64) models.TelemetryEvent {
	return models.TelemetryEvent{
		ID:          "ev-1",
		DeviceID:    deviceID,
		Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		MessageType: "temperature",
		Value:       floatPtr(value),
	}
}

func thresholdTrigger(deviceID, op string, threshold string) models.TriggerCondition {
	return models.TriggerCondition{
		Type:        models.TriggerSensorThreshold,
		DeviceID:    deviceID,
		MessageType: "temperature",
		Operator:    op,
		Threshold:   json.RawMessage(threshold),
	}
}

func TestMatchesSensorThresholdOperators(t *testing.T) {
	cases := []struct {
		name  string
		op    string
		value float64
		want  bool
	}{
		{"gt above", ">", 30, true},
		{"gt below", ">", 20, false},
		{"gt equal is strict", ">", 25, false},
		{"lt below", "<", 20, true},
		{"lt equal", "<", 25, false},
		{"gte equal", ">=", 25, true},
		{"gte below", ">=", 24.9, false},
		{"lte equal", "<=", 25, true},
		{"lte above", "<=", 25.1, false},
		{"eq equal", "==", 25, true},
		{"eq different", "==", 26, false},
		{"unknown operator", "!=", 30, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := thresholdTrigger("sensor-1", tc.op, "25")
			got := Matches(tr, tempEvent("sensor-1", tc.value))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMatchesSensorThresholdScope(t *testing.T) {
	tr := thresholdTrigger("sensor-1", ">", "25")

	t.Run("different device", func(t *testing.T) {
		assert.False(t, Matches(tr, tempEvent("sensor-2", 30)))
	})

	t.Run("different message type", func(t *testing.T) {
		ev := tempEvent("sensor-1", 30)
		ev.MessageType = "humidity"
		assert.False(t, Matches(tr, ev))
	})

	t.Run("missing value", func(t *testing.T) {
		ev := tempEvent("sensor-1", 0)
		ev.Value = nil
		assert.False(t, Matches(tr, ev))
	})

	t.Run("string threshold parses", func(t *testing.T) {
		tr := thresholdTrigger("sensor-1", ">", `"25"`)
		assert.True(t, Matches(tr, tempEvent("sensor-1", 30)))
	})

	t.Run("unparseable threshold never matches", func(t *testing.T) {
		tr := thresholdTrigger("sensor-1", ">", `"warm"`)
		assert.False(t, Matches(tr, tempEvent("sensor-1", 30)))
	})

	t.Run("empty threshold never matches", func(t *testing.T) {
		tr := thresholdTrigger("sensor-1", ">", "")
		tr.Threshold = nil
		assert.False(t, Matches(tr, tempEvent("sensor-1", 30)))
	})
}

func TestMatchesDeviceStatus(t *testing.T) {
	tr := models.TriggerCondition{
		Type:     models.TriggerDeviceStatus,
		DeviceID: "bedroom-light",
		Status:   "off",
	}

	// Status is matched against the message-type tag.
	ev := models.TelemetryEvent{DeviceID: "bedroom-light", MessageType: "off"}
	assert.True(t, Matches(tr, ev))

	ev.MessageType = "on"
	assert.False(t, Matches(tr, ev))

	ev = models.TelemetryEvent{DeviceID: "kitchen-light", MessageType: "off"}
	assert.False(t, Matches(tr, ev))
}

func TestMatchesUnknownTriggerType(t *testing.T) {
	tr := models.TriggerCondition{Type: "geofence", DeviceID: "sensor-1"}
	assert.False(t, Matches(tr, tempEvent("sensor-1", 30)))
}

func TestCoerceFloat(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want float64
		ok   bool
	}{
		{"number", "21.5", 21.5, true},
		{"integer", "42", 42, true},
		{"numeric string", `"18.25"`, 18.25, true},
		{"word string", `"hot"`, 0, false},
		{"bool", "true", 0, false},
		{"object", `{"v":1}`, 0, false},
		{"empty", "", 0, false},
		{"garbage", "{", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := CoerceFloat(json.RawMessage(tc.raw))
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}
