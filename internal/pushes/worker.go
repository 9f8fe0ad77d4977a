package pushes

import (
	"context"
	"fmt"
	"html"
	"time"

	"guestbot/internal/logger"
	"guestbot/internal/telegram"
)

const DefaultPollInterval = 5 * time.Second

// Worker is the claim loop. Any number of workers may share one store.
type Worker struct {
	ID           string
	Store        *Repo
	Resolver     *Resolver
	Executor     *Executor
	Alerter      Alerter
	Log          *logger.Logger
	PollInterval time.Duration
	Now          func() time.Time
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Worker) log() *logger.Logger {
	if w.Log != nil {
		return w.Log
	}
	return logger.Nop()
}

func (w *Worker) alerter() Alerter {
	if w.Alerter != nil {
		return w.Alerter
	}
	return nopAlerter{}
}

// Run claims and processes jobs until ctx is cancelled. Cancellation stops
// claiming; a job already claimed is finished first.
func (w *Worker) Run(ctx context.Context) {
	poll := w.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	w.log().Info("push worker started", "worker_id", w.ID, "poll", poll)
	defer w.log().Info("push worker stopped", "worker_id", w.ID)

	for {
		if ctx.Err() != nil {
			return
		}

		claimed, err := w.RunOnce(ctx)
		if err != nil {
			w.log().Error("push worker iteration failed", "worker_id", w.ID, "err", err)
			w.alerter().Alert(context.WithoutCancel(ctx),
				"❌ <b>Push worker error</b>\n\n<code>"+html.EscapeString(telegram.Truncate(err.Error(), maxErrorLen))+"</code>")
		}
		if claimed && err == nil {
			// drain the backlog without waiting
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(poll):
		}
	}
}

// RunOnce claims at most one due job and processes it to a terminal status.
// Panics are converted into errors.
func (w *Worker) RunOnce(ctx context.Context) (claimed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	job, err := w.Store.Claim(ctx, w.ID, w.now())
	if err != nil {
		return false, fmt.Errorf("claim: %w", err)
	}
	if job == nil {
		return false, nil
	}

	jobCtx := context.WithoutCancel(ctx)
	if err := w.process(jobCtx, job); err != nil {
		// no-op when Execute already finished the job: MarkFailed only
		// touches rows still in processing
		msg := telegram.Truncate(err.Error(), maxErrorLen)
		if ferr := w.Store.MarkFailed(jobCtx, job.ID, msg, w.now()); ferr != nil {
			w.log().Error("mark push failed", "push_id", job.ID, "err", ferr)
		}
		return true, fmt.Errorf("push %d: %w", job.ID, err)
	}
	return true, nil
}

func (w *Worker) process(ctx context.Context, job *PushJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	w.log().Info("push claimed", "push_id", job.ID, "worker_id", w.ID, "attempts", job.Attempts)

	recipients, err := w.Resolver.Resolve(ctx, job)
	if err != nil {
		return fmt.Errorf("resolve recipients: %w", err)
	}
	if _, err := w.Executor.Execute(ctx, job, recipients); err != nil {
		return err
	}
	return nil
}

type Options struct {
	WorkerID     string
	PollInterval time.Duration
	SendTimeout  time.Duration
	Concurrency  int
	RatePerSec   int
}

// NewWorker wires the claim loop over one store.
func NewWorker(store *Repo, dir Directory, sender Sender, alerter Alerter, log *logger.Logger, opt Options) *Worker {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("worker_id", opt.WorkerID)
	return &Worker{
		ID:       opt.WorkerID,
		Store:    store,
		Resolver: &Resolver{Directory: dir},
		Executor: &Executor{
			Store:       store,
			Dispatcher:  NewDispatcher(sender, opt.SendTimeout, opt.RatePerSec),
			Alerter:     alerter,
			Log:         log,
			Concurrency: opt.Concurrency,
		},
		Alerter:      alerter,
		Log:          log,
		PollInterval: opt.PollInterval,
	}
}
