// Package bot wires the Telegram transport to the conversation engine, the
// order services and the operator handoff.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/vrecdsxcdv/printbot/internal/config"
	"github.com/vrecdsxcdv/printbot/internal/flow"
	"github.com/vrecdsxcdv/printbot/internal/handoff"
	"github.com/vrecdsxcdv/printbot/internal/logger"
	"github.com/vrecdsxcdv/printbot/internal/orders"
	"github.com/vrecdsxcdv/printbot/internal/storage"
)

// Sessions idle long enough are collected by PruneSessions; losing one just
// restarts the order flow.
const sessionIdleTTL = 2 * time.Hour

// App is the assembled bot: transport, sessions, engine and services.
type App struct {
	cfg      *config.Config
	bot      *tele.Bot
	store    *storage.Store
	sessions *flow.Manager
	engine   *flow.Engine
	protocol *handoff.Protocol
	out      *sender
	log      *slog.Logger
}

// New builds the bot and registers all routes. It talks to the Telegram API
// once, to validate the token.
func New(cfg *config.Config, store *storage.Store) (*App, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: buildPoller(cfg),
		OnError: func(err error, c tele.Context) {
			attrs := []slog.Attr{
				slog.String("event", "tg.error"),
				slog.String("err", sanitizeError(err)),
			}
			if c != nil {
				attrs = append(attrs, slog.Int("update_id", c.Update().ID))
			}
			logger.TG.LogAttrs(context.Background(), slog.LevelError, "update processing failed", attrs...)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("bot initialization failed: %w", err)
	}

	a := &App{
		cfg:      cfg,
		bot:      b,
		store:    store,
		sessions: flow.NewManager(sessionIdleTTL),
		out:      newSender(senderOptions{MaxRetries: 3}),
		log:      logger.TG,
	}

	n := &notifier{a: a}
	svc := orders.New(store, n)
	a.engine = flow.NewEngine(svc, flow.Options{
		Location:    cfg.Location(),
		MaxUploadMB: cfg.App.MaxUploadMB,
	})
	a.protocol = handoff.New(store, n)

	a.routes()
	return a, nil
}

// Run starts update processing and blocks until ctx is done or the poller
// exits. Queued outbound messages are drained before returning.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("bot started",
		slog.String("event", "run"),
		slog.String("mode", a.cfg.Telegram.RunMode),
		slog.String("username", a.bot.Me.Username),
	)

	done := make(chan struct{})
	go func() {
		a.bot.Start()
		close(done)
	}()

	select {
	case <-ctx.Done():
		a.bot.Stop()
		<-done
	case <-done:
	}

	a.out.Close()
	a.log.Info("bot stopped",
		slog.String("event", "run"),
		slog.Uint64("send_errors", a.out.ErrorCount()),
	)
	return nil
}

// PruneSessions periodically collects idle conversation sessions.
func (a *App) PruneSessions(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := a.sessions.PruneIdle(time.Now()); n > 0 {
				logger.Flow.Info("idle sessions pruned",
					slog.String("event", "session.prune"),
					slog.Int("count", n),
				)
			}
		}
	}
}

// send queues a message for asynchronous delivery, falling back to a
// synchronous send when the queue is saturated.
func (a *App) send(chatID int64, action, text string, opts ...interface{}) error {
	recipient := tele.ChatID(chatID)
	err := a.out.Enqueue(action, func() error {
		_, sendErr := a.bot.Send(recipient, text, opts...)
		return sendErr
	})
	if errors.Is(err, errQueueFull) || errors.Is(err, errQueueClosed) {
		_, sendErr := a.bot.Send(recipient, text, opts...)
		return sendErr
	}
	return err
}
