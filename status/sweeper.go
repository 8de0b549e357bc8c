// Package status processes the append-only UserStatus log: unprocessed rows
// are consumed after a per-status debounce window, and old processed rows are
// purged on a retention schedule.
package status

import (
	"context"
	"log"
	"time"

	"duochat/models"
	"duochat/store"
)

const (
	onlineDebounce  = 10 * time.Second
	offlineDebounce = 30 * time.Second
	purgeEvery      = time.Hour
)

type Sweeper struct {
	statuses  *store.Statuses
	interval  time.Duration
	retention time.Duration
}

func NewSweeper(statuses *store.Statuses, interval, retention time.Duration) *Sweeper {
	return &Sweeper{
		statuses:  statuses,
		interval:  interval,
		retention: retention,
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	sweep := time.NewTicker(s.interval)
	purge := time.NewTicker(purgeEvery)
	defer sweep.Stop()
	defer purge.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			if err := s.Sweep(ctx); err != nil {
				log.Printf("status sweep failed: %v", err)
			}
		case <-purge.C:
			if err := s.Purge(ctx); err != nil {
				log.Printf("status purge failed: %v", err)
			}
		}
	}
}

// Sweep marks unprocessed rows as processed once their debounce window has
// passed. Online transitions settle faster than offline ones, so a short
// disconnect-reconnect flap never surfaces as offline.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := time.Now()
	rows, err := s.statuses.Unprocessed(ctx, now.Add(-onlineDebounce))
	if err != nil {
		return err
	}

	var ready []string
	for _, row := range rows {
		debounce := offlineDebounce
		if row.Status == models.StatusOnline {
			debounce = onlineDebounce
		}
		if row.CreatedAt.Before(now.Add(-debounce)) {
			ready = append(ready, row.ID)
		}
	}
	if len(ready) == 0 {
		return nil
	}

	if err := s.statuses.MarkProcessed(ctx, ready); err != nil {
		return err
	}
	log.Printf("processed %d status updates", len(ready))
	return nil
}

func (s *Sweeper) Purge(ctx context.Context) error {
	purged, err := s.statuses.PurgeProcessed(ctx, time.Now().Add(-s.retention))
	if err != nil {
		return err
	}
	if purged > 0 {
		log.Printf("purged %d old status updates", purged)
	}
	return nil
}
