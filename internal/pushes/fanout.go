package pushes

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"guestbot/internal/logger"
	"guestbot/internal/telegram"
)

const (
	DefaultConcurrency = 15
	noRecipients       = "No recipients"
)

// Executor delivers one claimed job to its recipients.
type Executor struct {
	Store       *Repo
	Dispatcher  *Dispatcher
	Alerter     Alerter
	Log         *logger.Logger
	Concurrency int
	Now         func() time.Time
}

type Outcome struct {
	Status  Status
	Total   int
	Success int
	Fail    int
}

func (e *Executor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Executor) log() *logger.Logger {
	if e.Log != nil {
		return e.Log
	}
	return logger.Nop()
}

func (e *Executor) alerter() Alerter {
	if e.Alerter != nil {
		return e.Alerter
	}
	return nopAlerter{}
}

// Execute fans the job out, writes one log row per recipient in completion
// order and finalizes the job. A log write failure does not stop the
// remaining deliveries; the first such error is returned after all of them
// resolved and the job is left for the caller to fail.
func (e *Executor) Execute(ctx context.Context, job *PushJob, recipients []int64) (Outcome, error) {
	out := Outcome{Total: len(recipients)}
	if err := e.Store.SetTotalTargets(ctx, job.ID, out.Total, e.now()); err != nil {
		return out, fmt.Errorf("set total targets: %w", err)
	}

	if out.Total == 0 {
		out.Status = StatusFailed
		msg := noRecipients
		if err := e.Store.Finish(ctx, job.ID, Completion{Status: StatusFailed, LastError: &msg}, e.now()); err != nil {
			return out, err
		}
		e.log().Warn("push has no recipients", "push_id", job.ID)
		return out, nil
	}

	limit := e.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make(chan Result, limit)
	var g errgroup.Group
	g.SetLimit(limit)
	go func() {
		for _, uid := range recipients {
			g.Go(func() error {
				results <- e.dispatch(ctx, uid, job.Message)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	var firstErr error
	for res := range results {
		entry := &DeliveryLog{
			PushID:     job.ID,
			UserID:     res.UserID,
			Status:     DeliverySent,
			DurationMS: res.Duration.Milliseconds(),
			CreatedAt:  e.now().UTC(),
		}
		if res.OK {
			out.Success++
		} else {
			out.Fail++
			errText := res.Err
			entry.Status = DeliveryFailed
			entry.Error = &errText
			e.log().Debug("push delivery failed", "push_id", job.ID, "user_id", res.UserID, "err", res.Err)
		}
		if err := e.Store.RecordDelivery(ctx, entry); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("record delivery for user %d: %w", res.UserID, err)
		}
	}
	if firstErr != nil {
		return out, firstErr
	}

	out.Status = FinalStatus(out.Success, out.Fail)
	c := Completion{Status: out.Status, SuccessCount: out.Success, FailCount: out.Fail}
	if out.Fail > 0 {
		summary := failureSummary(out.Fail)
		c.LastError = &summary
	}
	if err := e.Store.Finish(ctx, job.ID, c, e.now()); err != nil {
		return out, err
	}

	fields := []any{"push_id", job.ID, "status", out.Status, "total", out.Total, "success", out.Success, "failed", out.Fail}
	if out.Fail > 0 {
		e.log().Warn("push finished with failures", fields...)
		e.alerter().Alert(ctx, fmt.Sprintf("⚠️ Push #%d: total=%d, success=%d, failed=%d", job.ID, out.Total, out.Success, out.Fail))
	} else {
		e.log().Info("push finished", fields...)
	}
	return out, nil
}

// dispatch turns a panicking send into a failed result for that recipient.
func (e *Executor) dispatch(ctx context.Context, userID int64, text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{UserID: userID, Err: telegram.Truncate(fmt.Sprintf("panic: %v", r), maxErrorLen)}
		}
	}()
	return e.Dispatcher.Dispatch(ctx, userID, text)
}
