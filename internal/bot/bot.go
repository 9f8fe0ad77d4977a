// Package bot is the guest-facing Telegram front-end. It only registers
// guests in the directory so pushes can reach them.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"guestbot/internal/directory"
	"guestbot/internal/logger"
)

type Registrar interface {
	Upsert(ctx context.Context, u directory.User) error
}

type Bot struct {
	bot   *tele.Bot
	users Registrar
	log   *logger.Logger
}

func New(token, apiURL string, users Registrar, log *logger.Logger) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	b := &Bot{users: users, log: log}
	tb, err := tele.NewBot(tele.Settings{
		URL:    apiURL,
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Warn("bot handler error", "err", err)
		},
	})
	if err != nil {
		return nil, err
	}
	b.bot = tb
	tb.Handle("/start", b.onStart)
	return b, nil
}

func (b *Bot) onStart(c tele.Context) error {
	s := c.Sender()
	if s == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.users.Upsert(ctx, userFromSender(s)); err != nil {
		return fmt.Errorf("register user %d: %w", s.ID, err)
	}
	b.log.Info("guest registered", "user_id", s.ID)
	return c.Send(greeting(s.FirstName))
}

func userFromSender(s *tele.User) directory.User {
	return directory.User{
		UserID:    s.ID,
		Username:  nonEmpty(s.Username),
		FirstName: nonEmpty(s.FirstName),
		LastName:  nonEmpty(s.LastName),
	}
}

func greeting(firstName string) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		name = "there"
	}
	return "Hi, " + name + "! 👋\n\nYou're on the guest list now. We'll send event updates right here."
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Run polls until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		b.bot.Stop()
	}()
	b.log.Info("bot polling started")
	b.bot.Start()
}
