package rules

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/Dominicksam/SmartLiving/internal/actions"
	"github.com/Dominicksam/SmartLiving/internal/dispatch"
	"github.com/Dominicksam/SmartLiving/internal/fanout"
	"github.com/Dominicksam/SmartLiving/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scenarioCommandStore struct {
	mu       sync.Mutex
	commands []*models.DeviceCommand
}

func (s *scenarioCommandStore) InsertCommand(_ context.Context, cmd *models.DeviceCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *cmd
	s.commands = append(s.commands, &clone)
	return nil
}

func (s *scenarioCommandStore) TransitionCommand(_ context.Context, id, from, to string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cmd := range s.commands {
		if cmd.ID == id && cmd.Status == from {
			cmd.Status = to
			if to == models.CommandSent {
				cmd.SentAt = &at
			}
			return true, nil
		}
	}
	return false, nil
}

type acceptingTransport struct {
	mu        sync.Mutex
	delivered []models.DeviceCommand
}

func (t *acceptingTransport) Deliver(_ context.Context, cmd *models.DeviceCommand) (dispatch.DeliveryResult, error) {
	t.mu.Lock()
	t.delivered = append(t.delivered, *cmd)
	t.mu.Unlock()
	return dispatch.DeliveryResult{Accepted: true}, nil
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, string, string) error { return nil }

// A bedroom light reporting "off" fires the evening rule, which issues a
// turn_on command through the full dispatch path.
func TestStatusEventFiresRuleAndDispatchesCommand(t *testing.T) {
	store := newFakeRuleStore(models.AutomationRule{
		ID:      "rule-evening",
		OwnerID: "user-1",
		Name:    "evening light",
		Active:  true,
		Triggers: []models.TriggerCondition{{
			Type:     models.TriggerDeviceStatus,
			DeviceID: "bedroom-light",
			Status:   "off",
		}},
		Actions: []models.Action{{
			Type:       models.ActionDeviceCommand,
			DeviceID:   "bedroom-light",
			Command:    "turn_on",
			Parameters: json.RawMessage(`{"brightness":70}`),
		}},
	})

	cmdStore := &scenarioCommandStore{}
	transport := &acceptingTransport{}
	executor := actions.NewExecutor(dispatch.NewDispatcher(cmdStore, transport), discardNotifier{})
	fan := &fakeBroadcaster{}

	ev := NewEvaluator(store, executor, fan)
	ev.Evaluate(context.Background(), models.TelemetryEvent{
		ID:          "ev-1",
		DeviceID:    "bedroom-light",
		Timestamp:   time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC),
		MessageType: "off",
	})

	// One command, created and handed to the device transport.
	require.Len(t, cmdStore.commands, 1)
	cmd := cmdStore.commands[0]
	assert.Equal(t, "bedroom-light", cmd.DeviceID)
	assert.Equal(t, "turn_on", cmd.CommandType)
	assert.Equal(t, "user-1", cmd.IssuedBy)
	assert.Equal(t, models.CommandSent, cmd.Status)
	require.Len(t, transport.delivered, 1)

	// The rule's bookkeeping and broadcast both happened.
	assert.Equal(t, int64(1), store.executions["rule-evening"])
	require.Len(t, fan.events, 1)
	executed := fan.data[0].(fanout.RuleExecuted)
	assert.Equal(t, "rule-evening", executed.RuleID)
	assert.True(t, executed.Success)

	// An unrelated event leaves everything alone.
	ev.Evaluate(context.Background(), models.TelemetryEvent{
		ID: "ev-2", DeviceID: "kitchen-light", MessageType: "off",
	})
	assert.Len(t, cmdStore.commands, 1)
	assert.Equal(t, int64(1), store.executions["rule-evening"])
}
