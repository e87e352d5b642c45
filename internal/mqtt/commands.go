package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dominicksam/SmartLiving/internal/dispatch"
	"github.com/Dominicksam/SmartLiving/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	ackTopic       = "devices/+/commands/ack"
	publishTimeout = 5 * time.Second
)

// commandEnvelope is the wire shape published to a device's command topic
type commandEnvelope struct {
	CommandID  string          `json:"commandId"`
	Command    string          `json:"command"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// ackPayload is what devices publish back when a command finishes
type ackPayload struct {
	CommandID string     `json:"commandId"`
	Status    string     `json:"status"` // completed or failed
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// CommandTransport delivers commands over MQTT. A disconnected client is
// an explicit rejection (the device cannot be reached); publish errors
// are handoff failures that leave the command pending.
type CommandTransport struct {
	client mqtt.Client
}

func NewCommandTransport(client mqtt.Client) *CommandTransport {
	return &CommandTransport{client: client}
}

func (t *CommandTransport) Deliver(ctx context.Context, cmd *models.DeviceCommand) (dispatch.DeliveryResult, error) {
	if !t.client.IsConnected() {
		return dispatch.DeliveryResult{Accepted: false, Reason: "mqtt client disconnected"}, nil
	}

	body, err := json.Marshal(commandEnvelope{
		CommandID:  cmd.ID,
		Command:    cmd.CommandType,
		Parameters: cmd.Payload,
	})
	if err != nil {
		return dispatch.DeliveryResult{}, err
	}

	token := t.client.Publish(fmt.Sprintf("devices/%s/commands", cmd.DeviceID), 1, false, body)
	if !token.WaitTimeout(publishTimeout) {
		return dispatch.DeliveryResult{}, errors.New("publish timed out")
	}
	if token.Error() != nil {
		return dispatch.DeliveryResult{}, token.Error()
	}
	return dispatch.DeliveryResult{Accepted: true}, nil
}

// Reporter accepts asynchronous command completion reports
type Reporter interface {
	HandleReport(ctx context.Context, commandID, status string, at time.Time) error
}

// AckSubscriber feeds device command acknowledgements into the command
// lifecycle.
type AckSubscriber struct {
	client   mqtt.Client
	reporter Reporter
}

func NewAckSubscriber(client mqtt.Client, reporter Reporter) *AckSubscriber {
	return &AckSubscriber{client: client, reporter: reporter}
}

func (s *AckSubscriber) Start() error {
	token := s.client.Subscribe(ackTopic, 1, s.onAck)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	slog.Info("subscribed to command acknowledgements", "topic", ackTopic)
	return nil
}

func (s *AckSubscriber) onAck(_ mqtt.Client, msg mqtt.Message) {
	var ack ackPayload
	if err := json.Unmarshal(msg.Payload(), &ack); err != nil {
		slog.Warn("command ack is not valid JSON", "topic", msg.Topic(), "error", err)
		return
	}
	if ack.CommandID == "" {
		slog.Warn("command ack missing command id", "topic", msg.Topic())
		return
	}
	at := time.Now().UTC()
	if ack.Timestamp != nil {
		at = ack.Timestamp.UTC()
	}
	if err := s.reporter.HandleReport(context.Background(), ack.CommandID, ack.Status, at); err != nil {
		slog.Warn("command ack rejected", "command_id", ack.CommandID, "status", ack.Status, "error", err)
	}
}
