package alert

import (
	"context"
	"time"

	"guestbot/internal/logger"
)

type sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Telegram posts operator alerts into a logs chat. Delivery failures are
// logged and dropped. A zero ChatID disables it.
type Telegram struct {
	Sender  sender
	ChatID  int64
	Timeout time.Duration
	Log     *logger.Logger
}

func (t *Telegram) Alert(ctx context.Context, text string) {
	if t == nil || t.ChatID == 0 || t.Sender == nil {
		return
	}
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := t.Sender.SendMessage(ctx, t.ChatID, text); err != nil && t.Log != nil {
		t.Log.Warn("alert not delivered", "chat_id", t.ChatID, "err", err)
	}
}
