package bot

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/vrecdsxcdv/printbot/internal/logger"
)

// recoverMiddleware catches panics in handlers so one broken update cannot
// crash the bot.
func recoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer func() {
			if r := recover(); r != nil {
				logger.TG.Error("panic recovered",
					slog.String("event", "tg.panic"),
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		return next(c)
	}
}

// loggerMiddleware logs one receipt line per update and the handler outcome.
func loggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()

		attrs := []slog.Attr{
			slog.String("event", "update.received"),
			slog.Int("update_id", c.Update().ID),
		}
		if chat := c.Chat(); chat != nil {
			attrs = append(attrs, slog.Int64("chat_id", chat.ID))
		}
		if user := c.Sender(); user != nil {
			attrs = append(attrs, slog.Int64("user_id", user.ID))
		}
		if cb := c.Callback(); cb != nil {
			attrs = append(attrs, slog.String("cb_unique", cb.Unique))
		}
		logger.TG.LogAttrs(context.Background(), slog.LevelDebug, "update received", attrs...)

		err := next(c)

		if err != nil {
			logger.TG.Error("handler failed",
				slog.String("event", "update.handled"),
				slog.String("status", "error"),
				slog.Int("update_id", c.Update().ID),
				slog.String("err", sanitizeError(err)),
				slog.Duration("duration", logger.RoundMS(time.Since(start))),
			)
		}
		return err
	}
}
