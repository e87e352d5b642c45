package actions

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Dominicksam/SmartLiving/internal/dispatch"
	"github.com/Dominicksam/SmartLiving/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	requests []dispatch.Request
	err      error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, req dispatch.Request) (*models.DeviceCommand, error) {
	d.requests = append(d.requests, req)
	if d.err != nil {
		return nil, d.err
	}
	return &models.DeviceCommand{ID: "cmd-1", DeviceID: req.DeviceID, Status: models.CommandSent}, nil
}

type fakeNotifier struct {
	userIDs  []string
	messages []string
	err      error
}

func (n *fakeNotifier) Notify(_ context.Context, userID, message string) error {
	n.userIDs = append(n.userIDs, userID)
	n.messages = append(n.messages, message)
	return n.err
}

func testRule() models.AutomationRule {
	return models.AutomationRule{ID: "r1", OwnerID: "user-1", Name: "evening light"}
}

func TestExecuteAllDeviceCommand(t *testing.T) {
	disp := &fakeDispatcher{}
	x := NewExecutor(disp, &fakeNotifier{})

	ok := x.ExecuteAll(context.Background(), testRule(), []models.Action{{
		Type:       models.ActionDeviceCommand,
		DeviceID:   "bedroom-light",
		Command:    "turn_on",
		Parameters: json.RawMessage(`{"brightness":60}`),
	}})

	assert.True(t, ok)
	require.Len(t, disp.requests, 1)
	req := disp.requests[0]
	assert.Equal(t, "bedroom-light", req.DeviceID)
	assert.Equal(t, "turn_on", req.CommandType)
	// Commands fired by a rule are attributed to the rule's owner.
	assert.Equal(t, "user-1", req.IssuedBy)
	assert.JSONEq(t, `{"brightness":60}`, string(req.Payload))
}

func TestExecuteAllNotification(t *testing.T) {
	notifier := &fakeNotifier{}
	x := NewExecutor(&fakeDispatcher{}, notifier)

	ok := x.ExecuteAll(context.Background(), testRule(), []models.Action{{
		Type:    models.ActionNotification,
		Message: "motion detected in the hallway",
	}})

	assert.True(t, ok)
	assert.Equal(t, []string{"user-1"}, notifier.userIDs)
	assert.Equal(t, []string{"motion detected in the hallway"}, notifier.messages)
}

func TestExecuteAllFailingActionDoesNotStopSiblings(t *testing.T) {
	disp := &fakeDispatcher{err: errors.New("broker unreachable")}
	notifier := &fakeNotifier{}
	x := NewExecutor(disp, notifier)

	ok := x.ExecuteAll(context.Background(), testRule(), []models.Action{
		{Type: models.ActionDeviceCommand, DeviceID: "bedroom-light", Command: "turn_on"},
		{Type: models.ActionNotification, Message: "light turned on"},
	})

	assert.False(t, ok)
	// The notification still went out despite the command failure.
	assert.Len(t, notifier.messages, 1)
}

func TestExecuteAllValidatesActions(t *testing.T) {
	disp := &fakeDispatcher{}
	notifier := &fakeNotifier{}
	x := NewExecutor(disp, notifier)

	ok := x.ExecuteAll(context.Background(), testRule(), []models.Action{
		{Type: models.ActionDeviceCommand, Command: "turn_on"}, // no device
		{Type: models.ActionNotification},                      // no message
	})

	assert.False(t, ok)
	assert.Empty(t, disp.requests)
	assert.Empty(t, notifier.messages)
}

func TestExecuteAllUnknownActionTypeIsNoOp(t *testing.T) {
	x := NewExecutor(&fakeDispatcher{}, &fakeNotifier{})

	ok := x.ExecuteAll(context.Background(), testRule(), []models.Action{{Type: "scene_change"}})
	assert.True(t, ok)
}

func TestExecuteAllEmptyActionList(t *testing.T) {
	x := NewExecutor(&fakeDispatcher{}, &fakeNotifier{})
	assert.True(t, x.ExecuteAll(context.Background(), testRule(), nil))
}
