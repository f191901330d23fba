// Package notify forwards operational messages to a Telegram chat.
package notify

import (
	"log/slog"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"

	"qiming/lib/sl"
)

type Notifier struct {
	bot    *gotgbot.Bot
	chatId int64
	log    *slog.Logger
}

func New(apiKey string, chatId int64, logger *slog.Logger) (*Notifier, error) {
	bot, err := gotgbot.NewBot(apiKey, nil)
	if err != nil {
		return nil, err
	}
	return &Notifier{
		bot:    bot,
		chatId: chatId,
		log:    logger.With(sl.Module("notify")),
	}, nil
}

// SendMessage delivers one markdown message to the ops chat. Delivery is
// best-effort; a failed send is only logged locally.
func (n *Notifier) SendMessage(text string) {
	_, err := n.bot.SendMessage(n.chatId, text, &gotgbot.SendMessageOpts{
		ParseMode: "Markdown",
	})
	if err != nil {
		n.log.Error("telegram send failed", sl.Err(err))
	}
}

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"`", "\\`",
)

// Sanitize escapes Telegram markdown control characters in free text.
func Sanitize(text string) string {
	return markdownEscaper.Replace(text)
}
