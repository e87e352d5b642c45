package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Dominicksam/SmartLiving/internal/ingest"
	"github.com/Dominicksam/SmartLiving/internal/models"
	"github.com/Dominicksam/SmartLiving/internal/registry"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

// fakeClient records publishes; everything else is inert.
type fakeClient struct {
	mqtt.Client

	connected  bool
	publishErr error

	topics   []string
	payloads [][]byte
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload any) mqtt.Token {
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload.([]byte))
	return &fakeToken{err: c.publishErr}
}

type fakeIngestor struct {
	events []ingest.RawTelemetryEvent
	err    error
}

func (i *fakeIngestor) Ingest(_ context.Context, raw ingest.RawTelemetryEvent) error {
	i.events = append(i.events, raw)
	return i.err
}

func TestTelemetryMessageReachesPipeline(t *testing.T) {
	pipeline := &fakeIngestor{}
	sub := NewTelemetrySubscriber(&fakeClient{}, pipeline)

	sub.onMessage(nil, &fakeMessage{
		topic:   "devices/sensor-1/telemetry",
		payload: []byte(`{"messageType":"temperature","value":21.5,"unit":"C"}`),
	})

	require.Len(t, pipeline.events, 1)
	ev := pipeline.events[0]
	// Device id falls back to the topic segment when the payload omits it.
	assert.Equal(t, "sensor-1", ev.DeviceID)
	assert.Equal(t, "temperature", ev.MessageType)
	assert.Equal(t, "C", ev.Unit)
}

func TestTelemetryPayloadDeviceIDWins(t *testing.T) {
	pipeline := &fakeIngestor{}
	sub := NewTelemetrySubscriber(&fakeClient{}, pipeline)

	sub.onMessage(nil, &fakeMessage{
		topic:   "devices/gateway-1/telemetry",
		payload: []byte(`{"deviceId":"sensor-7","messageType":"humidity"}`),
	})

	require.Len(t, pipeline.events, 1)
	assert.Equal(t, "sensor-7", pipeline.events[0].DeviceID)
}

func TestTelemetryMalformedJSONIsDropped(t *testing.T) {
	pipeline := &fakeIngestor{}
	sub := NewTelemetrySubscriber(&fakeClient{}, pipeline)

	sub.onMessage(nil, &fakeMessage{topic: "devices/sensor-1/telemetry", payload: []byte("{not json")})

	assert.Empty(t, pipeline.events)
}

func TestTelemetryIngestErrorsDoNotPanic(t *testing.T) {
	for _, err := range []error{
		fmt.Errorf("%w: ghost", registry.ErrDeviceNotFound),
		ingest.ErrInvalidEvent,
		errors.New("persist telemetry: connection refused"),
	} {
		pipeline := &fakeIngestor{err: err}
		sub := NewTelemetrySubscriber(&fakeClient{}, pipeline)
		sub.onMessage(nil, &fakeMessage{
			topic:   "devices/sensor-1/telemetry",
			payload: []byte(`{"messageType":"temperature"}`),
		})
		assert.Len(t, pipeline.events, 1)
	}
}

func TestDeviceIDFromTopic(t *testing.T) {
	assert.Equal(t, "sensor-1", DeviceIDFromTopic("devices/sensor-1/telemetry"))
	assert.Equal(t, "sensor-1", DeviceIDFromTopic("devices/sensor-1"))
	assert.Equal(t, "", DeviceIDFromTopic("devices"))
}

func TestDeliverPublishesCommandEnvelope(t *testing.T) {
	client := &fakeClient{connected: true}
	transport := NewCommandTransport(client)

	result, err := transport.Deliver(context.Background(), &models.DeviceCommand{
		ID:          "cmd-1",
		DeviceID:    "bedroom-light",
		CommandType: "turn_on",
		Payload:     json.RawMessage(`{"brightness":80}`),
	})
	require.NoError(t, err)
	assert.True(t, result.Accepted)

	require.Len(t, client.topics, 1)
	assert.Equal(t, "devices/bedroom-light/commands", client.topics[0])

	var env commandEnvelope
	require.NoError(t, json.Unmarshal(client.payloads[0], &env))
	assert.Equal(t, "cmd-1", env.CommandID)
	assert.Equal(t, "turn_on", env.Command)
	assert.JSONEq(t, `{"brightness":80}`, string(env.Parameters))
}

func TestDeliverDisconnectedIsRejection(t *testing.T) {
	transport := NewCommandTransport(&fakeClient{connected: false})

	result, err := transport.Deliver(context.Background(), &models.DeviceCommand{
		ID: "cmd-1", DeviceID: "bedroom-light", CommandType: "turn_on",
	})
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.NotEmpty(t, result.Reason)
}

func TestDeliverPublishFailureIsError(t *testing.T) {
	client := &fakeClient{connected: true, publishErr: errors.New("broker gone")}
	transport := NewCommandTransport(client)

	_, err := transport.Deliver(context.Background(), &models.DeviceCommand{
		ID: "cmd-1", DeviceID: "bedroom-light", CommandType: "turn_on",
	})
	assert.Error(t, err)
}

type fakeReporter struct {
	ids      []string
	statuses []string
	times    []time.Time
	err      error
}

func (r *fakeReporter) HandleReport(_ context.Context, commandID, status string, at time.Time) error {
	r.ids = append(r.ids, commandID)
	r.statuses = append(r.statuses, status)
	r.times = append(r.times, at)
	return r.err
}

func TestAckFeedsCommandLifecycle(t *testing.T) {
	reporter := &fakeReporter{}
	sub := NewAckSubscriber(&fakeClient{}, reporter)

	done := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	payload, _ := json.Marshal(ackPayload{CommandID: "cmd-1", Status: models.CommandCompleted, Timestamp: &done})
	sub.onAck(nil, &fakeMessage{topic: "devices/bedroom-light/commands/ack", payload: payload})

	require.Len(t, reporter.ids, 1)
	assert.Equal(t, "cmd-1", reporter.ids[0])
	assert.Equal(t, models.CommandCompleted, reporter.statuses[0])
	assert.Equal(t, done, reporter.times[0])
}

func TestAckWithoutTimestampUsesReceiptTime(t *testing.T) {
	reporter := &fakeReporter{}
	sub := NewAckSubscriber(&fakeClient{}, reporter)

	sub.onAck(nil, &fakeMessage{
		topic:   "devices/bedroom-light/commands/ack",
		payload: []byte(`{"commandId":"cmd-1","status":"failed"}`),
	})

	require.Len(t, reporter.times, 1)
	assert.False(t, reporter.times[0].IsZero())
}

func TestAckInvalidPayloadsIgnored(t *testing.T) {
	reporter := &fakeReporter{}
	sub := NewAckSubscriber(&fakeClient{}, reporter)

	sub.onAck(nil, &fakeMessage{topic: "devices/x/commands/ack", payload: []byte("{not json")})
	sub.onAck(nil, &fakeMessage{topic: "devices/x/commands/ack", payload: []byte(`{"status":"completed"}`)})

	assert.Empty(t, reporter.ids)
}

func TestAckReporterRejectionIsSwallowed(t *testing.T) {
	reporter := &fakeReporter{err: errors.New("unsupported report status")}
	sub := NewAckSubscriber(&fakeClient{}, reporter)

	sub.onAck(nil, &fakeMessage{
		topic:   "devices/x/commands/ack",
		payload: []byte(`{"commandId":"cmd-1","status":"acknowledged"}`),
	})

	assert.Len(t, reporter.ids, 1)
}
