package notifier

import (
	"context"
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// TelegramConfig configures the Telegram notification sink.
type TelegramConfig struct {
	Token  string
	ChatID int64
}

// TelegramSink delivers notifications to a fixed Telegram chat. Send-only:
// no poller is started.
type TelegramSink struct {
	bot  *tele.Bot
	chat tele.ChatID
}

func NewTelegramSink(cfg TelegramConfig) (*TelegramSink, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is required")
	}
	b, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	return &TelegramSink{bot: b, chat: tele.ChatID(cfg.ChatID)}, nil
}

func (s *TelegramSink) Send(_ context.Context, text string) error {
	_, err := s.bot.Send(s.chat, text)
	return err
}
