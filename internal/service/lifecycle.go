package service

import (
	"context"
	"fmt"
	"time"

	"github.com/navikt/zmeet/internal/config"
	"github.com/navikt/zmeet/internal/log"
	"github.com/navikt/zmeet/internal/models"
	"github.com/navikt/zmeet/internal/room"
)

// Sweeper ends meetings that have been idle for too long and purges closed
// meetings past their retention
type Sweeper struct {
	svc      *MeetingService
	interval time.Duration
	waiting  time.Duration
	active   time.Duration
	retain   time.Duration
}

// NewSweeper creates a sweeper for the meetings managed by svc
func NewSweeper(svc *MeetingService, cfg config.MeetConfig) *Sweeper {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		svc:      svc,
		interval: interval,
		waiting:  cfg.WaitingTimeout,
		active:   cfg.ActiveTimeout,
		retain:   cfg.Retention,
	}
}

// Run sweeps once immediately and then on every interval until ctx is done
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		if _, err := sw.Sweep(ctx); err != nil {
			log.Errorf("Meeting sweep failed: %v", err)
		}

		select {
		case <-ctx.Done():
			log.Infof("Meeting sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep ends stale meetings and returns how many were ended
func (sw *Sweeper) Sweep(ctx context.Context) (int, error) {
	meetings, err := sw.svc.repo.ListAllMeetings(ctx)
	if err != nil {
		return 0, fmt.Errorf("list meetings: %w", err)
	}

	now := sw.svc.now()
	ended := 0
	for _, m := range meetings {
		switch {
		case sw.expired(m, now):
			if err := sw.end(ctx, m, now); err != nil {
				log.WithFields(log.Fields{"meeting_id": m.ID}).WithError(err).Warn("Failed to end stale meeting")
				continue
			}
			ended++
		case sw.purgeable(m, now):
			if err := sw.svc.repo.DeleteMeeting(ctx, m.ID); err != nil {
				log.WithFields(log.Fields{"meeting_id": m.ID}).WithError(err).Warn("Failed to purge meeting")
			}
		}
	}

	if ended > 0 {
		log.Infof("Ended %d stale meetings", ended)
	}
	return ended, nil
}

func (sw *Sweeper) expired(m *models.Meeting, now time.Time) bool {
	idle := now.Sub(lastActivity(m))
	switch m.Status {
	case models.MeetingStatusWaiting:
		return sw.waiting > 0 && idle > sw.waiting
	case models.MeetingStatusActive:
		return sw.active > 0 && idle > sw.active
	default:
		return false
	}
}

func (sw *Sweeper) purgeable(m *models.Meeting, now time.Time) bool {
	if sw.retain <= 0 || m.Status.IsLive() || m.EndTime.IsZero() {
		return false
	}
	return now.Sub(m.EndTime) > sw.retain
}

// end closes the meeting through the service so listeners are notified
func (sw *Sweeper) end(ctx context.Context, m *models.Meeting, now time.Time) error {
	if m.SessionID == "" {
		return fmt.Errorf("meeting %s has no session", m.ID)
	}
	_, err := sw.svc.mutate(ctx, room.Name(m), func(cur *models.Meeting) (bool, error) {
		// Recheck against the latest snapshot
		if cur.ID != m.ID || !sw.expired(cur, now) {
			return false, nil
		}
		cur.Close(models.MeetingStatusEnded, now)
		return true, nil
	})
	return err
}

func lastActivity(m *models.Meeting) time.Time {
	if m.Modified.After(m.StartTime) {
		return m.Modified
	}
	return m.StartTime
}
