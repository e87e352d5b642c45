package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dominicksam/SmartLiving/internal/fanout"
	"github.com/Dominicksam/SmartLiving/internal/models"

	"github.com/robfig/cron/v3"
)

// DeviceStore flips silent devices offline
type DeviceStore interface {
	MarkStaleOffline(ctx context.Context, cutoff time.Time) ([]models.Device, error)
}

// Broadcaster publishes presence transitions to subscribers
type Broadcaster interface {
	PublishToAll(event string, payload any)
}

// Sweeper periodically marks devices offline when they have not been
// heard from within the configured window, and broadcasts the presence
// change. Ingestion flips them back online on their next event.
type Sweeper struct {
	cron         *cron.Cron
	store        DeviceStore
	fanout       Broadcaster
	offlineAfter time.Duration
	interval     time.Duration
	now          func() time.Time
}

func NewSweeper(store DeviceStore, fan Broadcaster, offlineAfter, interval time.Duration) *Sweeper {
	return &Sweeper{
		cron:         cron.New(),
		store:        store,
		fanout:       fan,
		offlineAfter: offlineAfter,
		interval:     interval,
		now:          time.Now,
	}
}

// Start schedules the sweep job
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), s.Sweep); err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("presence sweeper started", "offline_after", s.offlineAfter, "interval", s.interval)
	return nil
}

// Stop stops the cron loop and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep runs one pass. The offline flip is a single conditional update in
// the store, so a device that reports in concurrently is not raced
// offline with a stale read.
func (s *Sweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := s.now().UTC().Add(-s.offlineAfter)
	stale, err := s.store.MarkStaleOffline(ctx, cutoff)
	if err != nil {
		slog.Error("presence sweep failed", "error", err)
		return
	}
	for _, dev := range stale {
		lastSeen := time.Time{}
		if dev.LastSeen != nil {
			lastSeen = *dev.LastSeen
		}
		slog.Info("device went offline", "device_id", dev.ID, "last_seen", lastSeen)
		s.fanout.PublishToAll(fanout.EventDeviceStatusUpdate, fanout.DeviceStatusUpdate{
			DeviceID: dev.ID,
			IsOnline: false,
			LastSeen: lastSeen,
		})
	}
}
