package db

import (
	"context"
	"time"

	"github.com/Dominicksam/SmartLiving/internal/models"
)

const commandColumns = "id, device_id, issued_by, command_type, payload, status, created_at, sent_at, completed_at"

// InsertCommand creates a command record in its initial status
func (d *DB) InsertCommand(ctx context.Context, cmd *models.DeviceCommand) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO device_commands (id, device_id, issued_by, command_type, payload, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		cmd.ID, cmd.DeviceID, cmd.IssuedBy, cmd.CommandType, cmd.Payload, cmd.Status, cmd.CreatedAt)
	return err
}

// GetCommandByID fetches a command record
func (d *DB) GetCommandByID(ctx context.Context, id string) (*models.DeviceCommand, error) {
	var cmd models.DeviceCommand
	err := d.pool.QueryRow(ctx, "SELECT "+commandColumns+" FROM device_commands WHERE id = $1", id).
		Scan(&cmd.ID, &cmd.DeviceID, &cmd.IssuedBy, &cmd.CommandType, &cmd.Payload, &cmd.Status,
			&cmd.CreatedAt, &cmd.SentAt, &cmd.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &cmd, nil
}

// TransitionCommand moves a command from one status to another, recording
// the timestamp in the column matching the target status. The WHERE clause
// on the current status makes the transition conditional: a command already
// past `from` is left untouched and false is returned, so transitions only
// ever move forward and the first terminal transition wins.
func (d *DB) TransitionCommand(ctx context.Context, id, from, to string, at time.Time) (bool, error) {
	column := "completed_at"
	if to == models.CommandSent {
		column = "sent_at"
	}
	tag, err := d.pool.Exec(ctx,
		"UPDATE device_commands SET status = $1, "+column+" = $2 WHERE id = $3 AND status = $4",
		to, at, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
