package browser

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tumioparbe/web/internal/pkg/logctx"
	"github.com/tumioparbe/web/internal/storage"
)

// FlashKey holds the pending notification
const FlashKey = "flash"

type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
	FlashInfo    FlashKind = "info"
)

// Flash is a one-shot notification shown on the next rendered page
type Flash struct {
	Kind    FlashKind `json:"kind"`
	Title   string    `json:"title"`
	Message string    `json:"message,omitempty"`
}

// SetFlash replaces the pending notification. Failures are only logged.
func (b *Browser) SetFlash(ctx context.Context, kind FlashKind, title, message string) {
	if err := storage.SetJSON(ctx, b.Storage, FlashKey, Flash{Kind: kind, Title: title, Message: message}); err != nil {
		logctx.From(ctx).Warn("flash_set_failed", slog.String("err", err.Error()))
	}
}

// TakeFlash returns and removes the pending notification, nil when there is none.
func (b *Browser) TakeFlash(ctx context.Context) *Flash {
	var f Flash
	if err := storage.GetJSON(ctx, b.Storage, FlashKey, &f); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logctx.From(ctx).Debug("flash_load_failed", slog.String("err", err.Error()))
		}
		return nil
	}
	if err := b.Storage.Delete(ctx, FlashKey); err != nil {
		logctx.From(ctx).Warn("flash_clear_failed", slog.String("err", err.Error()))
	}
	return &f
}
