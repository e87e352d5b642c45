package actions

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Dominicksam/SmartLiving/internal/dispatch"
	"github.com/Dominicksam/SmartLiving/internal/models"
)

// CommandDispatcher creates and delivers device commands
type CommandDispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (*models.DeviceCommand, error)
}

// Notifier delivers a notification to a user through whatever channel is
// configured outside this core.
type Notifier interface {
	Notify(ctx context.Context, userID, message string) error
}

// Executor runs a fired rule's actions. Best-effort: a failing action is
// logged and the remaining actions in the list still run.
type Executor struct {
	dispatcher CommandDispatcher
	notifier   Notifier
}

func NewExecutor(dispatcher CommandDispatcher, notifier Notifier) *Executor {
	return &Executor{dispatcher: dispatcher, notifier: notifier}
}

// ExecuteAll executes every action of a fired rule, returning whether all
// of them succeeded.
func (x *Executor) ExecuteAll(ctx context.Context, rule models.AutomationRule, acts []models.Action) bool {
	allOK := true
	for i, action := range acts {
		if err := x.execute(ctx, rule, action); err != nil {
			slog.Error("action execution failed",
				"rule_id", rule.ID, "action_index", i, "action_type", action.Type, "error", err)
			allOK = false
		}
	}
	return allOK
}

func (x *Executor) execute(ctx context.Context, rule models.AutomationRule, action models.Action) error {
	switch action.Type {
	case models.ActionDeviceCommand:
		if action.DeviceID == "" || action.Command == "" {
			return errors.New("device_command action missing device or command")
		}
		_, err := x.dispatcher.Dispatch(ctx, dispatch.Request{
			DeviceID:    action.DeviceID,
			IssuedBy:    rule.OwnerID,
			CommandType: action.Command,
			Payload:     action.Parameters,
		})
		return err
	case models.ActionNotification:
		if action.Message == "" {
			return errors.New("notification action missing message")
		}
		return x.notifier.Notify(ctx, rule.OwnerID, action.Message)
	}
	// Unknown action types are a silent no-op, matching the permissive
	// behavior rules were authored against.
	slog.Debug("skipping unknown action type", "rule_id", rule.ID, "action_type", action.Type)
	return nil
}
