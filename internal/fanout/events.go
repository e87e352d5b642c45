package fanout

import (
	"encoding/json"
	"time"
)

// Event names are part of the contract with the dashboard and must not
// change.
const (
	EventTelemetryUpdate        = "telemetryUpdate"
	EventDeviceStatusUpdate     = "deviceStatusUpdate"
	EventAutomationRuleExecuted = "automationRuleExecuted"
	EventNotification           = "notification"
)

// TelemetryUpdate is the payload broadcast for every ingested event
type TelemetryUpdate struct {
	DeviceID       string          `json:"deviceId"`
	MessageType    string          `json:"messageType"`
	Value          *float64        `json:"value,omitempty"`
	Unit           string          `json:"unit,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	AdditionalData json.RawMessage `json:"additionalData,omitempty"`
}

// DeviceStatusUpdate is broadcast when a device's presence changes
type DeviceStatusUpdate struct {
	DeviceID string    `json:"deviceId"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

// RuleExecuted is broadcast after an automation rule fires
type RuleExecuted struct {
	RuleID   string `json:"ruleId"`
	RuleName string `json:"ruleName"`
	Success  bool   `json:"success"`
}

// Notification is delivered to a single user
type Notification struct {
	Message string `json:"message"`
}
