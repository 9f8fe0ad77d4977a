package pushes

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"guestbot/internal/telegram"
)

const maxErrorLen = 500

// Sender performs one outbound message send.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type Result struct {
	UserID   int64
	OK       bool
	Err      string
	Duration time.Duration
}

// Dispatcher sends one message to one recipient with a bounded timeout.
// It never touches the store.
type Dispatcher struct {
	Sender  Sender
	Timeout time.Duration
	Limiter *rate.Limiter
}

func NewDispatcher(sender Sender, timeout time.Duration, ratePerSec int) *Dispatcher {
	d := &Dispatcher{Sender: sender, Timeout: timeout}
	if ratePerSec > 0 {
		d.Limiter = rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)
	}
	return d
}

func (d *Dispatcher) Dispatch(ctx context.Context, userID int64, text string) Result {
	res := Result{UserID: userID}
	start := time.Now()

	if d.Limiter != nil {
		if err := d.Limiter.Wait(ctx); err != nil {
			res.Err = telegram.Truncate(fmt.Sprintf("rate limiter: %v", err), maxErrorLen)
			res.Duration = time.Since(start)
			return res
		}
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := d.Sender.SendMessage(sendCtx, userID, text)
	res.Duration = time.Since(start)

	if err != nil {
		res.Err = telegram.Truncate(err.Error(), maxErrorLen)
		return res
	}
	res.OK = true
	return res
}
