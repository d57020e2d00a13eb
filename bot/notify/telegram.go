// Package notify delivers operator alerts over Telegram: a formatted lead
// summary when a conversation completes and a heads-up on human handoff.
// Everything here is best effort; a lost notification never breaks the
// user-facing flow.
package notify

import (
	"context"

	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/cisnemotors/leadbot/bot/engine"
	"github.com/cisnemotors/leadbot/core/config"
	"github.com/cisnemotors/leadbot/core/logger"
)

// Telegram sends operator notifications to a fixed admin chat.
type Telegram struct {
	bot  *tele.Bot
	chat tele.ChatID
}

// NewTelegram builds the notifier. Returns a disabled Noop when no token is
// configured so callers never have to nil-check.
func NewTelegram(cfg config.NotifyConfig) (engine.Notifier, error) {
	if cfg.TelegramToken == "" {
		logger.Info(logger.Background(), "notify", "notify.disabled",
			slog.String("status", "skip"),
		)
		return Noop{}, nil
	}

	bot, err := tele.NewBot(tele.Settings{Token: cfg.TelegramToken})
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: bot, chat: tele.ChatID(cfg.ChatID)}, nil
}

// NotifyLeadComplete pushes the lead summary to the operator chat.
func (t *Telegram) NotifyLeadComplete(ctx context.Context, lead engine.Lead) {
	t.deliver(ctx, "notify.lead", FormatLeadSummary(lead))
}

// NotifyHandoff alerts the operator that a user asked for a human.
func (t *Telegram) NotifyHandoff(ctx context.Context, identity, displayName, reason string) {
	t.deliver(ctx, "notify.handoff", FormatHandoff(identity, displayName, reason))
}

func (t *Telegram) deliver(ctx context.Context, event, text string) {
	_, err := t.bot.Send(t.chat, text, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	if err != nil {
		logger.Warn(ctx, "notify", event+".fail",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.Debug(ctx, "notify", event,
		slog.String("status", "ok"),
	)
}

// Noop is the notifier used when Telegram is not configured.
type Noop struct{}

func (Noop) NotifyLeadComplete(context.Context, engine.Lead) {}

func (Noop) NotifyHandoff(context.Context, string, string, string) {}
