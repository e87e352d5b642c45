package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dominicksam/SmartLiving/internal/models"

	"github.com/google/uuid"
)

// ErrRejected is returned when the transport refuses a command before
// handoff. The command record ends up in the terminal failed state.
var ErrRejected = errors.New("dispatch rejected")

// CommandStore persists command records and applies conditional,
// forward-only status transitions.
type CommandStore interface {
	InsertCommand(ctx context.Context, cmd *models.DeviceCommand) error
	TransitionCommand(ctx context.Context, id, from, to string, at time.Time) (bool, error)
}

// DeliveryResult is the transport's verdict on a handoff attempt
type DeliveryResult struct {
	Accepted bool
	Reason   string
}

// Transport delivers a command to a device. An error means the handoff
// could not be attempted or completed; Accepted=false means the transport
// explicitly refused it.
type Transport interface {
	Deliver(ctx context.Context, cmd *models.DeviceCommand) (DeliveryResult, error)
}

// Request describes a command to dispatch
type Request struct {
	DeviceID    string
	IssuedBy    string
	CommandType string
	Payload     json.RawMessage
}

// Dispatcher creates command records and drives them through the
// lifecycle: pending -> sent -> completed|failed, or pending -> failed on
// rejection. Transitions are conditional in the store, so they only ever
// move forward.
type Dispatcher struct {
	store     CommandStore
	transport Transport
	now       func() time.Time
}

func NewDispatcher(store CommandStore, transport Transport) *Dispatcher {
	return &Dispatcher{store: store, transport: transport, now: time.Now}
}

// Dispatch creates the command in pending and attempts delivery. The
// returned record reflects the status reached. A transport error leaves
// the command pending (retry belongs to the transport); an explicit
// rejection marks it failed.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*models.DeviceCommand, error) {
	if req.DeviceID == "" || req.CommandType == "" {
		return nil, errors.New("device id and command type are required")
	}

	cmd := &models.DeviceCommand{
		ID:          uuid.NewString(),
		DeviceID:    req.DeviceID,
		IssuedBy:    req.IssuedBy,
		CommandType: req.CommandType,
		Payload:     req.Payload,
		Status:      models.CommandPending,
		CreatedAt:   d.now().UTC(),
	}
	if err := d.store.InsertCommand(ctx, cmd); err != nil {
		return nil, fmt.Errorf("create command: %w", err)
	}

	result, err := d.transport.Deliver(ctx, cmd)
	if err != nil {
		slog.Warn("command handoff failed, left pending",
			"command_id", cmd.ID, "device_id", cmd.DeviceID, "error", err)
		return cmd, fmt.Errorf("deliver command %s: %w", cmd.ID, err)
	}

	at := d.now().UTC()
	if !result.Accepted {
		if _, terr := d.store.TransitionCommand(ctx, cmd.ID, models.CommandPending, models.CommandFailed, at); terr != nil {
			slog.Error("command state update failed", "command_id", cmd.ID, "error", terr)
		} else {
			cmd.Status = models.CommandFailed
			cmd.CompletedAt = &at
		}
		return cmd, fmt.Errorf("%w: %s", ErrRejected, result.Reason)
	}

	applied, terr := d.store.TransitionCommand(ctx, cmd.ID, models.CommandPending, models.CommandSent, at)
	if terr != nil {
		slog.Error("command state update failed", "command_id", cmd.ID, "error", terr)
	} else if applied {
		cmd.Status = models.CommandSent
		cmd.SentAt = &at
	}
	return cmd, nil
}

// HandleReport applies an asynchronous completion/failure report from the
// device transport. Only sent commands move; a report against a command
// that is already terminal (or never left pending) is ignored — the first
// terminal transition wins.
func (d *Dispatcher) HandleReport(ctx context.Context, commandID, status string, at time.Time) error {
	if status != models.CommandCompleted && status != models.CommandFailed {
		return fmt.Errorf("unsupported report status %q for command %s", status, commandID)
	}
	if at.IsZero() {
		at = d.now().UTC()
	}
	applied, err := d.store.TransitionCommand(ctx, commandID, models.CommandSent, status, at)
	if err != nil {
		return fmt.Errorf("apply report for command %s: %w", commandID, err)
	}
	if !applied {
		slog.Debug("command report ignored", "command_id", commandID, "status", status)
	}
	return nil
}
