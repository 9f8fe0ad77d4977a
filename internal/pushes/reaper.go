package pushes

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"guestbot/internal/logger"
)

// Reaper returns jobs whose processing lock went stale (worker crashed
// mid-job) to pending so another worker picks them up. Recipients already
// delivered before the crash will be sent again.
type Reaper struct {
	Store      *Repo
	StaleAfter time.Duration
	Alerter    Alerter
	Log        *logger.Logger
	Now        func() time.Time
}

func (r *Reaper) Reap(ctx context.Context) (int64, error) {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	n, err := r.Store.ReapStale(ctx, now.Add(-r.StaleAfter), now)
	if err != nil {
		return 0, fmt.Errorf("reap stale pushes: %w", err)
	}
	if n > 0 {
		if r.Log != nil {
			r.Log.Warn("reclaimed stale processing pushes", "count", n, "stale_after", r.StaleAfter)
		}
		if r.Alerter != nil {
			r.Alerter.Alert(ctx, fmt.Sprintf("♻️ Reclaimed %d push(es) stuck in processing for over %s", n, r.StaleAfter))
		}
	}
	return n, nil
}

// Start schedules Reap every minute. The returned func stops the schedule
// and waits for a running reap to return.
func (r *Reaper) Start(ctx context.Context) (func(), error) {
	c := cron.New()
	_, err := c.AddFunc("@every 1m", func() {
		if _, err := r.Reap(ctx); err != nil && r.Log != nil {
			r.Log.Error("stale push reaper failed", "err", err)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}
