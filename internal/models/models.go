package models

import (
	"encoding/json"
	"time"
)

// Device types
const (
	DeviceTypeSensor     = "sensor"
	DeviceTypeActuator   = "actuator"
	DeviceTypeController = "controller"
)

// Device represents a registered device and its presence
type Device struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"` // sensor, actuator, controller
	Location   string          `json:"location"`
	OwnerID    *string         `json:"owner_id"`
	IsOnline   bool            `json:"is_online"`
	LastSeen   *time.Time      `json:"last_seen"`
	Properties json.RawMessage `json:"properties"`
}

// TelemetryEvent is one timestamped reading from a device.
// Immutable once persisted; ordering within a device is by Timestamp,
// not arrival order.
type TelemetryEvent struct {
	ID             string          `json:"id"`
	DeviceID       string          `json:"device_id"`
	Timestamp      time.Time       `json:"timestamp"`
	MessageType    string          `json:"message_type"`
	Value          *float64        `json:"value,omitempty"`
	Unit           string          `json:"unit,omitempty"`
	AdditionalData json.RawMessage `json:"additional_data,omitempty"`
}

// Trigger condition types
const (
	TriggerSensorThreshold = "sensor_threshold"
	TriggerDeviceStatus    = "device_status"
)

// TriggerCondition is a tagged variant. For sensor_threshold the
// MessageType/Operator/Threshold fields apply; for device_status the
// Status field applies. Unknown types never match.
type TriggerCondition struct {
	Type        string          `json:"type"`
	DeviceID    string          `json:"device_id"`
	MessageType string          `json:"message_type,omitempty"`
	Operator    string          `json:"operator,omitempty"` // ">", "<", ">=", "<=", "=="
	Threshold   json.RawMessage `json:"threshold,omitempty"`
	Status      string          `json:"status,omitempty"`
}

// Action types
const (
	ActionDeviceCommand = "device_command"
	ActionNotification  = "notification"
)

// Action is a tagged variant executed when a rule fires. Unknown types
// are a silent no-op.
type Action struct {
	Type       string          `json:"type"`
	DeviceID   string          `json:"device_id,omitempty"`
	Command    string          `json:"command,omitempty"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// AutomationRule binds trigger conditions to actions. Execution metadata
// (LastExecuted, ExecutionCount) is mutated only through the rule store's
// conditional update.
type AutomationRule struct {
	ID             string             `json:"id"`
	OwnerID        string             `json:"owner_id"`
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	Active         bool               `json:"active"`
	Triggers       []TriggerCondition `json:"triggers"`
	Actions        []Action           `json:"actions"`
	Schedule       *string            `json:"schedule,omitempty"` // persisted, not evaluated
	LastExecuted   *time.Time         `json:"last_executed"`
	ExecutionCount int64              `json:"execution_count"`
}

// Command lifecycle statuses. Forward-only:
// pending -> sent -> completed | failed, or pending -> failed.
const (
	CommandPending   = "pending"
	CommandSent      = "sent"
	CommandCompleted = "completed"
	CommandFailed    = "failed"
)

// DeviceCommand tracks one command through its delivery lifecycle.
type DeviceCommand struct {
	ID          string          `json:"id"`
	DeviceID    string          `json:"device_id"`
	IssuedBy    string          `json:"issued_by"`
	CommandType string          `json:"command_type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	SentAt      *time.Time      `json:"sent_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
