package pushes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("push not found")
	ErrEmptyMessage  = errors.New("message is required")
	ErrNotProcessing = errors.New("push is not processing")
)

const claimOrder = "scheduled_at asc nulls first, created_at asc, id asc"

type Repo struct {
	DB *gorm.DB
}

type EnqueueInput struct {
	Message       string
	SendToAll     bool
	TargetUserIDs []int64
	ScheduledAt   *time.Time
}

// Enqueue inserts a pending job. A missing or past schedule becomes now.
func (r *Repo) Enqueue(ctx context.Context, in EnqueueInput, now time.Time) (*PushJob, error) {
	in.Message = strings.TrimSpace(in.Message)
	if in.Message == "" {
		return nil, ErrEmptyMessage
	}
	// an empty explicit list is accepted; the worker fails it as having no recipients
	var targets TargetIDs
	if !in.SendToAll {
		targets = TargetIDs(dedupe(in.TargetUserIDs))
		if targets == nil {
			targets = TargetIDs{}
		}
	}

	now = now.UTC()
	at := now
	if in.ScheduledAt != nil && in.ScheduledAt.After(now) {
		at = in.ScheduledAt.UTC()
	}

	j := PushJob{
		Message:       in.Message,
		SendToAll:     in.SendToAll,
		TargetUserIDs: targets,
		ScheduledAt:   &at,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.DB.WithContext(ctx).Create(&j).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// Claim moves the oldest due pending job to processing and returns it.
// Returns nil, nil when nothing is due.
//
// On Postgres FOR UPDATE SKIP LOCKED lets concurrent claimers pass over rows
// another worker is examining instead of waiting on them. Other dialects
// fall back to a conditional update whose affected-row count picks the winner.
func (r *Repo) Claim(ctx context.Context, workerID string, now time.Time) (*PushJob, error) {
	now = now.UTC()
	if r.DB.Dialector.Name() == "postgres" {
		return r.claimSkipLocked(ctx, workerID, now)
	}
	return r.claimConditional(ctx, workerID, now)
}

func (r *Repo) claimSkipLocked(ctx context.Context, workerID string, now time.Time) (*PushJob, error) {
	var job PushJob
	err := r.DB.WithContext(ctx).Raw(`
with cte as (
  select id
  from push_jobs
  where status = 'pending' and (scheduled_at is null or scheduled_at <= ?)
  order by `+claimOrder+`
  limit 1
  for update skip locked
)
update push_jobs
set status = 'processing', locked_at = ?, locked_by = ?, attempts = attempts + 1, updated_at = ?
where id in (select id from cte)
returning *;
`, now, now, workerID, now).Scan(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *Repo) claimConditional(ctx context.Context, workerID string, now time.Time) (*PushJob, error) {
	var claimed *PushJob
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cand PushJob
		res := tx.Where("status = ? and (scheduled_at is null or scheduled_at <= ?)", string(StatusPending), now).
			Order(claimOrder).
			Limit(1).
			Find(&cand)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		upd := tx.Model(&PushJob{}).
			Where("id = ? and status = ?", cand.ID, string(StatusPending)).
			Updates(map[string]any{
				"status":     string(StatusProcessing),
				"locked_at":  now,
				"locked_by":  workerID,
				"attempts":   gorm.Expr("attempts + 1"),
				"updated_at": now,
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			// lost the row to another claimer
			return nil
		}

		var job PushJob
		if err := tx.First(&job, cand.ID).Error; err != nil {
			return err
		}
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *Repo) SetTotalTargets(ctx context.Context, id uint64, n int, now time.Time) error {
	return r.DB.WithContext(ctx).Exec(
		`update push_jobs set total_targets = ?, updated_at = ? where id = ?`, n, now.UTC(), id,
	).Error
}

// RecordDelivery appends the log row and bumps the matching job counter.
func (r *Repo) RecordDelivery(ctx context.Context, entry *DeliveryLog) error {
	counter := "success_count"
	if entry.Status == DeliveryFailed {
		counter = "fail_count"
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		return tx.Exec(`update push_jobs set `+counter+` = `+counter+` + 1 where id = ?`, entry.PushID).Error
	})
}

type Completion struct {
	Status       Status
	SuccessCount int
	FailCount    int
	LastError    *string
}

// Finish moves a processing job to its terminal status.
func (r *Repo) Finish(ctx context.Context, id uint64, c Completion, now time.Time) error {
	now = now.UTC()
	res := r.DB.WithContext(ctx).Model(&PushJob{}).
		Where("id = ? and status = ?", id, string(StatusProcessing)).
		Updates(map[string]any{
			"status":        string(c.Status),
			"success_count": c.SuccessCount,
			"fail_count":    c.FailCount,
			"last_error":    c.LastError,
			"is_sent":       true,
			"sent_at":       now,
			"updated_at":    now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("finish push %d: %w", id, ErrNotProcessing)
	}
	return nil
}

// MarkFailed fails a job still in processing. Terminal jobs are left alone.
func (r *Repo) MarkFailed(ctx context.Context, id uint64, errMsg string, now time.Time) error {
	now = now.UTC()
	return r.DB.WithContext(ctx).Exec(`
update push_jobs
set status = ?, last_error = ?, is_sent = ?, sent_at = ?, updated_at = ?
where id = ? and status = ?`,
		string(StatusFailed), errMsg, true, now, now, id, string(StatusProcessing),
	).Error
}

// ReapStale puts processing jobs locked before cutoff back to pending.
func (r *Repo) ReapStale(ctx context.Context, cutoff, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Exec(`
update push_jobs
set status = ?, locked_by = null, locked_at = null, last_error = ?, updated_at = ?
where status = ? and locked_at is not null and locked_at < ?`,
		string(StatusPending), "reclaimed stale processing lock", now.UTC(), string(StatusProcessing), cutoff.UTC(),
	)
	return res.RowsAffected, res.Error
}

func (r *Repo) Get(ctx context.Context, id uint64) (*PushJob, error) {
	var j PushJob
	if err := r.DB.WithContext(ctx).First(&j, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &j, nil
}

func (r *Repo) List(ctx context.Context, limit int) ([]PushJob, error) {
	var out []PushJob
	err := r.DB.WithContext(ctx).Order("created_at desc, id desc").Limit(limit).Find(&out).Error
	return out, err
}

func (r *Repo) Logs(ctx context.Context, pushID uint64) ([]DeliveryLog, error) {
	var out []DeliveryLog
	err := r.DB.WithContext(ctx).Where("push_id = ?", pushID).Order("id asc").Find(&out).Error
	return out, err
}

func (r *Repo) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&PushJob{}).Where("status = ?", string(StatusPending)).Count(&n).Error
	return n, err
}
