package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vrecdsxcdv/printbot/internal/format"
	"github.com/vrecdsxcdv/printbot/internal/logger"
)

// remindEvery bounds how often the sweep nags about the same order.
const remindEvery = time.Hour

// Sweep periodically reminds the operator chat about NEW orders nobody
// picked up. Disabled when the interval or the operator chat is not
// configured.
func (a *App) Sweep(ctx context.Context) error {
	interval := time.Duration(a.cfg.App.SweepIntervalSeconds) * time.Second
	if interval <= 0 || a.cfg.Operator.ChatID == 0 {
		logger.Sweep.Info("stale order sweep disabled", slog.String("event", "sweep"))
		<-ctx.Done()
		return nil
	}
	staleAfter := time.Duration(a.cfg.App.SweepStaleAfterMinutes) * time.Minute

	logger.Sweep.Info("stale order sweep started",
		slog.String("event", "sweep"),
		slog.Duration("interval", interval),
		slog.Duration("stale_after", staleAfter),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	reminded := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.sweepOnce(ctx, staleAfter, reminded)
		}
	}
}

func (a *App) sweepOnce(ctx context.Context, staleAfter time.Duration, reminded map[string]time.Time) {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	now := time.Now()
	stale, err := a.store.StaleNew(ctx, now.Add(-staleAfter))
	if err != nil {
		logger.Sweep.Error("stale order query failed",
			slog.String("event", "sweep"),
			slog.String("status", "error"),
			slog.String("err", err.Error()),
		)
		return
	}

	current := make(map[string]struct{}, len(stale))
	sent := 0
	for _, o := range stale {
		current[o.Code] = struct{}{}
		if last, ok := reminded[o.Code]; ok && now.Sub(last) < remindEvery {
			continue
		}
		reminded[o.Code] = now

		text := fmt.Sprintf("⏰ Заказ ждёт оператора уже %d мин\n\n%s",
			int(now.Sub(o.CreatedAt).Minutes()), format.StatusLine(o))
		if err := a.send(a.cfg.Operator.ChatID, "sweep.remind", text, operatorKeyboard(o)); err != nil {
			logger.Sweep.Warn("stale order reminder failed",
				slog.String("event", "sweep"),
				slog.String("code", o.Code),
				slog.String("err", sanitizeError(err)),
			)
			continue
		}
		sent++
	}

	// forget orders that moved on
	for code := range reminded {
		if _, ok := current[code]; !ok {
			delete(reminded, code)
		}
	}

	if len(stale) > 0 {
		logger.Sweep.Info("sweep finished",
			slog.String("event", "sweep"),
			slog.String("status", "ok"),
			slog.Int("stale", len(stale)),
			slog.Int("reminded", sent),
		)
	}
}
