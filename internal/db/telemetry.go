package db

import (
	"context"
	"time"

	"github.com/Dominicksam/SmartLiving/internal/models"
)

const telemetryColumns = "id, device_id, ts, message_type, value, unit, additional_data"

// InsertTelemetry appends one telemetry event. The table is append-only;
// events are never updated or deleted by the core. An absent unit is
// stored as NULL, matching what the read path scans.
func (d *DB) InsertTelemetry(ctx context.Context, ev *models.TelemetryEvent) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO telemetry_events (id, device_id, ts, message_type, value, unit, additional_data)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.ID, ev.DeviceID, ev.Timestamp, ev.MessageType, ev.Value, nullIfEmpty(ev.Unit), ev.AdditionalData)
	return err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ListTelemetry fetches events for a device within [from, to], newest first.
// Zero time bounds are open-ended.
func (d *DB) ListTelemetry(ctx context.Context, deviceID string, from, to time.Time, limit int) ([]models.TelemetryEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	rows, err := d.pool.Query(ctx,
		`SELECT `+telemetryColumns+` FROM telemetry_events
		 WHERE device_id = $1 AND ts >= $2 AND ts <= $3
		 ORDER BY ts DESC LIMIT $4`,
		deviceID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.TelemetryEvent
	for rows.Next() {
		var ev models.TelemetryEvent
		var unit *string
		if err := rows.Scan(&ev.ID, &ev.DeviceID, &ev.Timestamp, &ev.MessageType, &ev.Value, &unit, &ev.AdditionalData); err != nil {
			return nil, err
		}
		if unit != nil {
			ev.Unit = *unit
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
