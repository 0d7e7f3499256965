package telegram

import (
	"context"
	"errors"
	"time"

	tele "gopkg.in/telebot.v4"
)

// Channel pushes monitor notifications to a single Telegram chat. The bot is
// send-only: no poller is attached and no updates are consumed.
type Channel struct {
	bot  *tele.Bot
	chat tele.ChatID
}

func New(token string, chatID int64) (*Channel, error) {
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat ID is empty")
	}
	b, err := tele.NewBot(tele.Settings{Token: token})
	if err != nil {
		return nil, err
	}
	return &Channel{bot: b, chat: tele.ChatID(chatID)}, nil
}

func (c *Channel) Name() string    { return "telegram" }
func (c *Channel) IsEnabled() bool { return true }

// Send delivers the message text as-is. telebot has no context plumbing, so
// the call is bounded by running it in a goroutine and racing ctx.
func (c *Channel) Send(ctx context.Context, text string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	done := make(chan error, 1)
	go func() {
		_, err := c.bot.Send(c.chat, text, &tele.SendOptions{DisableWebPagePreview: true})
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(30 * time.Second):
		return errors.New("telegram send timed out")
	}
}
