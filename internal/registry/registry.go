package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dominicksam/SmartLiving/internal/models"

	"github.com/jackc/pgx/v5"
)

// ErrDeviceNotFound is returned when a device id is not registered.
// Telemetry for unknown devices is dropped, not retried.
var ErrDeviceNotFound = errors.New("device not found")

// DeviceStore is the persistence surface the registry needs
type DeviceStore interface {
	GetDeviceByID(ctx context.Context, id string) (*models.Device, error)
	UpsertDevice(ctx context.Context, id, name, deviceType, location string, ownerID *string, properties json.RawMessage) error
	UpdatePresence(ctx context.Context, id string, seenAt time.Time) error
}

// PresenceCache keeps a fast advisory copy of last-seen timestamps.
// Advance must be monotonic: an older timestamp never moves an entry
// backwards.
type PresenceCache interface {
	Advance(ctx context.Context, id string, seenAt time.Time) error
	LastSeen(ctx context.Context, id string) (time.Time, bool, error)
}

// Descriptor carries the mutable registration fields of a device
type Descriptor struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Location   string          `json:"location"`
	OwnerID    *string         `json:"owner_id"`
	Properties json.RawMessage `json:"properties"`
}

// Presence is a device's advisory online state as served to the API
type Presence struct {
	DeviceID string     `json:"deviceId"`
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

// Registry tracks known devices and their presence. Presence writes go to
// the store (monotonic max on last_seen) and mirror into the cache with
// the same discipline; reads prefer the mirror and fall back to the store.
type Registry struct {
	store        DeviceStore
	cache        PresenceCache
	offlineAfter time.Duration
	now          func() time.Time
}

// New creates a registry. cache may be nil.
func New(store DeviceStore, cache PresenceCache, offlineAfter time.Duration) *Registry {
	return &Registry{store: store, cache: cache, offlineAfter: offlineAfter, now: time.Now}
}

// GetDevice resolves a device by id
func (r *Registry) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	dev, err := r.store.GetDeviceByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrDeviceNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
		}
		return nil, err
	}
	return dev, nil
}

// UpsertPresence marks a device online as of seenAt. The store advances
// last_seen monotonically, so stale or reordered events never move it
// backwards. The cache mirror is best-effort and equally monotonic.
func (r *Registry) UpsertPresence(ctx context.Context, id string, seenAt time.Time) error {
	if err := r.store.UpdatePresence(ctx, id, seenAt); err != nil {
		return err
	}
	if r.cache != nil {
		if err := r.cache.Advance(ctx, id, seenAt); err != nil {
			slog.Warn("presence cache write failed", "device_id", id, "error", err)
		}
	}
	return nil
}

// Presence serves a device's online state. The mirror answers without
// touching the store; a cache miss or failure falls back to the device
// row. The online flag on the mirror path is derived from the same
// offline window the sweeper enforces.
func (r *Registry) Presence(ctx context.Context, id string) (*Presence, error) {
	if r.cache != nil {
		seen, ok, err := r.cache.LastSeen(ctx, id)
		if err != nil {
			slog.Warn("presence cache read failed", "device_id", id, "error", err)
		} else if ok {
			return &Presence{
				DeviceID: id,
				IsOnline: r.now().Sub(seen) < r.offlineAfter,
				LastSeen: &seen,
			}, nil
		}
	}
	dev, err := r.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Presence{DeviceID: dev.ID, IsOnline: dev.IsOnline, LastSeen: dev.LastSeen}, nil
}

// RegisterOrUpdate upserts a device keyed by id. An unknown id creates the
// device; a known id updates name, type, location and properties without
// touching presence.
func (r *Registry) RegisterOrUpdate(ctx context.Context, desc Descriptor) error {
	if desc.ID == "" {
		return errors.New("device id is required")
	}
	return r.store.UpsertDevice(ctx, desc.ID, desc.Name, desc.Type, desc.Location, desc.OwnerID, desc.Properties)
}
