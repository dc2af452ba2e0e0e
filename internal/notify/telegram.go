package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/telebot.v3"
)

// TelegramPublisher broadcasts to a Telegram channel, addressed either by
// @username or numeric chat id.
type TelegramPublisher struct {
	bot     *telebot.Bot
	channel string
}

func NewTelegramPublisher(token, channel string) (*TelegramPublisher, error) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return nil, fmt.Errorf("empty telegram channel")
	}
	bot, err := telebot.NewBot(telebot.Settings{Token: strings.TrimSpace(token)})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramPublisher{bot: bot, channel: channel}, nil
}

func (p *TelegramPublisher) Publish(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.bot.Send(p.recipient(), message); err != nil {
		return fmt.Errorf("send to channel %s: %w", p.channel, err)
	}
	return nil
}

func (p *TelegramPublisher) recipient() telebot.Recipient {
	if strings.HasPrefix(p.channel, "@") {
		return &telebot.Chat{Username: p.channel}
	}
	id, err := strconv.ParseInt(p.channel, 10, 64)
	if err != nil {
		return &telebot.Chat{Username: p.channel}
	}
	return &telebot.Chat{ID: id}
}
