package pushes

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"guestbot/internal/db/dbtest"
	"guestbot/internal/directory"
)

var t0 = time.Date(2026, 5, 16, 7, 45, 0, 0, time.UTC)

func newRepo(tb testing.TB) *Repo {
	tb.Helper()
	return &Repo{DB: dbtest.Open(tb, &directory.User{}, &PushJob{}, &DeliveryLog{})}
}

func seedJob(tb testing.TB, r *Repo, j PushJob) *PushJob {
	tb.Helper()
	if j.Message == "" {
		j.Message = "<b>hello</b>"
	}
	if j.Status == "" {
		j.Status = StatusPending
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = t0
	}
	j.UpdatedAt = j.CreatedAt
	if err := r.DB.Create(&j).Error; err != nil {
		tb.Fatalf("seed job: %v", err)
	}
	return &j
}

func reload(tb testing.TB, r *Repo, id uint64) *PushJob {
	tb.Helper()
	j, err := r.Get(context.Background(), id)
	if err != nil {
		tb.Fatalf("get job %d: %v", id, err)
	}
	return j
}

type staticDirectory []int64

func (d staticDirectory) AllIDs(context.Context) ([]int64, error) { return d, nil }

type fakeSender struct {
	fail  map[int64]bool
	delay time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	mu    sync.Mutex
	calls []int64
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, chatID)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.fail[chatID] {
		return &testSendError{chatID: chatID}
	}
	return nil
}

type testSendError struct{ chatID int64 }

func (e *testSendError) Error() string { return "api error: chat not found" }

type recordingAlerter struct {
	mu   sync.Mutex
	msgs []string
	ch   chan string
}

func (a *recordingAlerter) Alert(_ context.Context, text string) {
	a.mu.Lock()
	a.msgs = append(a.msgs, text)
	a.mu.Unlock()
	if a.ch != nil {
		select {
		case a.ch <- text:
		default:
		}
	}
}

func (a *recordingAlerter) all() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.msgs...)
}

func (a *recordingAlerter) contains(sub string) bool {
	for _, m := range a.all() {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

func newTestWorker(r *Repo, dir Directory, sender Sender, alerter Alerter, concurrency int) *Worker {
	clock := func() time.Time { return t0.Add(time.Minute) }
	return &Worker{
		ID:       "w-test",
		Store:    r,
		Resolver: &Resolver{Directory: dir},
		Executor: &Executor{
			Store:       r,
			Dispatcher:  NewDispatcher(sender, time.Second, 0),
			Alerter:     alerter,
			Concurrency: concurrency,
			Now:         clock,
		},
		Alerter:      alerter,
		PollInterval: 10 * time.Millisecond,
		Now:          clock,
	}
}
