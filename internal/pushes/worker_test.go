package pushes

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type panicDirectory struct{}

func (panicDirectory) AllIDs(context.Context) ([]int64, error) { panic("directory exploded") }

type panicSender struct{ victim int64 }

func (p panicSender) SendMessage(_ context.Context, chatID int64, _ string) error {
	if chatID == p.victim {
		panic("sender exploded")
	}
	return nil
}

type panicAlerter struct{}

func (panicAlerter) Alert(context.Context, string) { panic("alert channel exploded") }

func TestRunOnceIdle(t *testing.T) {
	r := newRepo(t)
	w := newTestWorker(r, staticDirectory{}, &fakeSender{}, nil, 15)
	claimed, err := w.RunOnce(context.Background())
	if err != nil || claimed {
		t.Fatalf("expected idle iteration, claimed=%v err=%v", claimed, err)
	}
}

func TestRunOnceFailsJobOnResolverError(t *testing.T) {
	r := newRepo(t)
	job := seedJob(t, r, PushJob{SendToAll: true})
	w := newTestWorker(r, errDirectory{err: errors.New("directory unavailable")}, &fakeSender{}, nil, 15)

	claimed, err := w.RunOnce(context.Background())
	if !claimed || err == nil || !strings.Contains(err.Error(), "directory unavailable") {
		t.Fatalf("claimed=%v err=%v", claimed, err)
	}
	got := reload(t, r, job.ID)
	if got.Status != StatusFailed || got.LastError == nil || !strings.Contains(*got.LastError, "directory unavailable") {
		t.Fatalf("job should be failed with the error: %+v", got)
	}
}

func TestRunOnceRecoversPanic(t *testing.T) {
	r := newRepo(t)
	job := seedJob(t, r, PushJob{SendToAll: true})
	w := newTestWorker(r, panicDirectory{}, &fakeSender{}, nil, 15)

	claimed, err := w.RunOnce(context.Background())
	if !claimed || err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatalf("claimed=%v err=%v", claimed, err)
	}
	if got := reload(t, r, job.ID); got.Status != StatusFailed {
		t.Fatalf("job left in %s", got.Status)
	}
}

func TestRunSurvivesFailuresAndDrains(t *testing.T) {
	r := newRepo(t)
	bad := seedJob(t, r, PushJob{SendToAll: true, CreatedAt: t0})
	good := seedJob(t, r, PushJob{TargetUserIDs: TargetIDs{1}, CreatedAt: t0.Add(time.Second)})

	alerts := &recordingAlerter{ch: make(chan string, 4)}
	w := newTestWorker(r, panicDirectory{}, &fakeSender{}, alerts, 15)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case msg := <-alerts.ch:
		if !strings.Contains(msg, "Push worker error") {
			t.Fatalf("unexpected alert %q", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no crash alert")
	}

	deadline := time.Now().Add(5 * time.Second)
	for reload(t, r, good.ID).Status != StatusSent {
		if time.Now().After(deadline) {
			t.Fatal("loop stopped after a failed iteration")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop on cancel")
	}
	if got := reload(t, r, bad.ID); got.Status != StatusFailed {
		t.Fatalf("bad job left in %s", got.Status)
	}
}

func TestSenderPanicFailsOnlyThatRecipient(t *testing.T) {
	r := newRepo(t)
	job := seedJob(t, r, PushJob{TargetUserIDs: TargetIDs{1, 2, 3}})
	w := newTestWorker(r, staticDirectory{}, panicSender{victim: 2}, nil, 15)

	claimed, err := w.RunOnce(context.Background())
	if !claimed || err != nil {
		t.Fatalf("claimed=%v err=%v", claimed, err)
	}
	got := reload(t, r, job.ID)
	if got.Status != StatusSentWithErrors || got.SuccessCount != 2 || got.FailCount != 1 {
		t.Fatalf("unexpected job %+v", got)
	}
	logs, err := r.Logs(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 log rows, got %d", len(logs))
	}
	for _, l := range logs {
		if l.UserID == 2 && (l.Status != DeliveryFailed || l.Error == nil || !strings.Contains(*l.Error, "sender exploded")) {
			t.Fatalf("panicking send not recorded as failure: %+v", l)
		}
	}
}

func TestErrorAfterFinishKeepsTerminalStatus(t *testing.T) {
	r := newRepo(t)
	job := seedJob(t, r, PushJob{TargetUserIDs: TargetIDs{1, 2}})
	sender := &fakeSender{fail: map[int64]bool{2: true}}
	w := newTestWorker(r, staticDirectory{}, sender, nil, 15)
	w.Executor.Alerter = panicAlerter{}

	claimed, err := w.RunOnce(context.Background())
	if !claimed || err == nil || !strings.Contains(err.Error(), "alert channel exploded") {
		t.Fatalf("claimed=%v err=%v", claimed, err)
	}
	got := reload(t, r, job.ID)
	if got.Status != StatusSentWithErrors || got.LastError == nil || *got.LastError != "1 deliveries failed" {
		t.Fatalf("finished job overwritten: %+v", got)
	}
}
