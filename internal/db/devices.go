package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Dominicksam/SmartLiving/internal/models"
)

const deviceColumns = "device_id, name, type, location, owner_id, is_online, last_seen, properties"

// GetDeviceByID fetches a device by ID
func (d *DB) GetDeviceByID(ctx context.Context, id string) (*models.Device, error) {
	var dev models.Device
	err := d.pool.QueryRow(ctx, "SELECT "+deviceColumns+" FROM devices WHERE device_id = $1", id).
		Scan(&dev.ID, &dev.Name, &dev.Type, &dev.Location, &dev.OwnerID, &dev.IsOnline, &dev.LastSeen, &dev.Properties)
	if err != nil {
		return nil, err
	}
	return &dev, nil
}

// ListDevices fetches all devices owned by the given user
func (d *DB) ListDevices(ctx context.Context, ownerID string) ([]models.Device, error) {
	rows, err := d.pool.Query(ctx, "SELECT "+deviceColumns+" FROM devices WHERE owner_id = $1 ORDER BY name", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		var dev models.Device
		if err := rows.Scan(&dev.ID, &dev.Name, &dev.Type, &dev.Location, &dev.OwnerID, &dev.IsOnline, &dev.LastSeen, &dev.Properties); err != nil {
			return nil, err
		}
		devices = append(devices, dev)
	}
	return devices, rows.Err()
}

// UpsertDevice creates a device or updates its mutable fields. Presence
// columns are never touched here.
func (d *DB) UpsertDevice(ctx context.Context, id, name, deviceType, location string, ownerID *string, properties json.RawMessage) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO devices (device_id, name, type, location, owner_id, properties, is_online)
		 VALUES ($1, $2, $3, $4, $5, $6, false)
		 ON CONFLICT (device_id) DO UPDATE
		 SET name = EXCLUDED.name, type = EXCLUDED.type, location = EXCLUDED.location,
		     owner_id = EXCLUDED.owner_id, properties = EXCLUDED.properties`,
		id, name, deviceType, location, ownerID, properties)
	return err
}

// UpdatePresence marks a device online and advances last_seen to the
// maximum observed timestamp. GREATEST makes the write commutative with
// concurrent updates from out-of-order arrivals.
func (d *DB) UpdatePresence(ctx context.Context, id string, seenAt time.Time) error {
	_, err := d.pool.Exec(ctx,
		`UPDATE devices SET is_online = true, last_seen = GREATEST(COALESCE(last_seen, $2), $2)
		 WHERE device_id = $1`,
		id, seenAt)
	return err
}

// MarkStaleOffline flips devices offline whose last_seen is older than the
// cutoff, returning the affected devices.
func (d *DB) MarkStaleOffline(ctx context.Context, cutoff time.Time) ([]models.Device, error) {
	rows, err := d.pool.Query(ctx,
		`UPDATE devices SET is_online = false
		 WHERE is_online = true AND (last_seen IS NULL OR last_seen < $1)
		 RETURNING `+deviceColumns,
		cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		var dev models.Device
		if err := rows.Scan(&dev.ID, &dev.Name, &dev.Type, &dev.Location, &dev.OwnerID, &dev.IsOnline, &dev.LastSeen, &dev.Properties); err != nil {
			return nil, err
		}
		devices = append(devices, dev)
	}
	return devices, rows.Err()
}
