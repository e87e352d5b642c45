package rules

import (
	"encoding/json"
	"strconv"

	"github.com/Dominicksam/SmartLiving/internal/models"
)

// Matches reports whether a trigger condition matches a telemetry event.
// Pure and side-effect-free: malformed thresholds, missing values,
// unknown operators and unknown trigger types all simply fail to match.
func Matches(tr models.TriggerCondition, ev models.TelemetryEvent) bool {
	switch tr.Type {
	case models.TriggerSensorThreshold:
		if tr.DeviceID != ev.DeviceID || tr.MessageType != ev.MessageType {
			return false
		}
		if ev.Value == nil {
			return false
		}
		threshold, ok := CoerceFloat(tr.Threshold)
		if !ok {
			return false
		}
		return compare(*ev.Value, tr.Operator, threshold)
	case models.TriggerDeviceStatus:
		// Status is compared against the message-type tag. Existing
		// semantic, preserved for compatibility.
		return tr.DeviceID == ev.DeviceID && tr.Status == ev.MessageType
	}
	return false
}

func compare(value float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	case "==":
		return value == threshold
	}
	return false
}

// CoerceFloat parses a raw JSON value as a float64, accepting numbers
// and numeric strings.
func CoerceFloat(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
