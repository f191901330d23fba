package logger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"qiming/internal/notify"
)

// Messenger is the sending side of the ops notification channel.
type Messenger interface {
	SendMessage(text string)
}

// TelegramHandler is a slog.Handler that mirrors records at or above
// minLevel to a Telegram chat, after the wrapped handler has written them.
type TelegramHandler struct {
	handler   slog.Handler
	messenger Messenger
	minLevel  slog.Level
	mu        sync.Mutex
	attrs     []slog.Attr
	group     string
}

func NewTelegramHandler(handler slog.Handler, messenger Messenger, minLevel slog.Level) *TelegramHandler {
	return &TelegramHandler{
		handler:   handler,
		messenger: messenger,
		minLevel:  minLevel,
		attrs:     make([]slog.Attr, 0),
	}
}

func (h *TelegramHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *TelegramHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.handler.Handle(ctx, record)
	if err != nil {
		return err
	}

	if record.Level < h.minLevel || h.messenger == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var msg string
	if h.group != "" {
		msg = fmt.Sprintf("*%s* `%s.%s`", record.Level.String(), h.group, record.Message)
	} else {
		msg = fmt.Sprintf("*%s* `%s`", record.Level.String(), record.Message)
	}

	for _, attr := range h.attrs {
		if attr.Key == "error" {
			msg += fmt.Sprintf("\n%s: ```error %v ```", attr.Key, attr.Value)
		} else {
			msg += notify.Sanitize(fmt.Sprintf("\n%s: %v", attr.Key, attr.Value))
		}
	}
	record.Attrs(func(attr slog.Attr) bool {
		msg += notify.Sanitize(fmt.Sprintf("\n%s: %v", attr.Key, attr.Value))
		return true
	})

	h.messenger.SendMessage(msg)
	return nil
}

func (h *TelegramHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)

	return &TelegramHandler{
		handler:   h.handler.WithAttrs(attrs),
		messenger: h.messenger,
		minLevel:  h.minLevel,
		attrs:     newAttrs,
		group:     h.group,
	}
}

func (h *TelegramHandler) WithGroup(name string) slog.Handler {
	return &TelegramHandler{
		handler:   h.handler.WithGroup(name),
		messenger: h.messenger,
		minLevel:  h.minLevel,
		attrs:     h.attrs,
		group:     name,
	}
}
