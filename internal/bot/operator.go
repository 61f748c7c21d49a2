package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/vrecdsxcdv/printbot/internal/format"
	"github.com/vrecdsxcdv/printbot/internal/handoff"
	"github.com/vrecdsxcdv/printbot/internal/logger"
	"github.com/vrecdsxcdv/printbot/internal/models"
)

// Operator inline actions. Callback data carries the order code.
var (
	btnOpTake    = tele.Btn{Unique: "op_take"}
	btnOpReady   = tele.Btn{Unique: "op_ready"}
	btnOpFix     = tele.Btn{Unique: "op_fix"}
	btnOpResume  = tele.Btn{Unique: "op_resume"}
	btnOpCancel  = tele.Btn{Unique: "op_cancel"}
	btnOpContact = tele.Btn{Unique: "op_contact"}
)

func (a *App) operatorRoutes() {
	b := a.bot
	b.Handle(&btnOpTake, a.operatorAction(handoff.ActionTake))
	b.Handle(&btnOpReady, a.operatorAction(handoff.ActionReady))
	b.Handle(&btnOpFix, a.operatorAction(handoff.ActionNeedsFix))
	b.Handle(&btnOpResume, a.operatorAction(handoff.ActionResume))
	b.Handle(&btnOpCancel, a.operatorAction(handoff.ActionCancel))
	b.Handle(&btnOpContact, a.operatorContact)
}

func (a *App) isOperatorChat(c tele.Context) bool {
	chat := c.Chat()
	return chat != nil && a.cfg.Operator.ChatID != 0 && chat.ID == a.cfg.Operator.ChatID
}

// operatorKeyboard offers the actions legal from the order's status.
// Terminal orders keep only the contact button.
func operatorKeyboard(o models.Order) *tele.ReplyMarkup {
	var rows [][]inlineBtn
	switch o.Status {
	case models.StatusNew:
		rows = [][]inlineBtn{
			{{Text: "🛠 Взять в работу", Unique: btnOpTake.Unique, Data: o.Code}},
			{{Text: "❌ Отменить", Unique: btnOpCancel.Unique, Data: o.Code}},
		}
	case models.StatusInProgress:
		rows = [][]inlineBtn{
			{
				{Text: "✅ Готов", Unique: btnOpReady.Unique, Data: o.Code},
				{Text: "✏️ Нужны правки", Unique: btnOpFix.Unique, Data: o.Code},
			},
			{{Text: "❌ Отменить", Unique: btnOpCancel.Unique, Data: o.Code}},
		}
	case models.StatusWaitingClient:
		rows = [][]inlineBtn{
			{{Text: "▶️ Возобновить", Unique: btnOpResume.Unique, Data: o.Code}},
			{{Text: "❌ Отменить", Unique: btnOpCancel.Unique, Data: o.Code}},
		}
	}
	rows = append(rows, []inlineBtn{{Text: "👤 Контакт", Unique: btnOpContact.Unique, Data: o.Code}})
	return inlineRows(rows...)
}

// operatorContact replies with the customer's contact details so the
// operator does not have to dig them out of the card history.
func (a *App) operatorContact(c tele.Context) error {
	if !a.isOperatorChat(c) {
		return c.Respond(&tele.CallbackResponse{Text: "Недоступно"})
	}
	ctx, cancel := handlerContext()
	defer cancel()

	o, err := a.store.OrderByCode(ctx, strings.TrimSpace(c.Data()))
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Заказ не найден"})
	}
	u, err := a.store.UserByID(ctx, o.UserID)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Клиент не найден"})
	}

	text := fmt.Sprintf("👤 Клиент по заказу %s\n%s", o.Code, u.DisplayName())
	if o.Contact != "" {
		text += "\n📞 " + o.Contact
	}
	if err := a.send(c.Chat().ID, "operator.contact", text); err != nil {
		return err
	}
	return c.Respond()
}

// operatorAction builds the callback handler for one handoff action: apply
// the transition, refresh the card in place and toast the outcome.
func (a *App) operatorAction(act handoff.Action) tele.HandlerFunc {
	return func(c tele.Context) error {
		if !a.isOperatorChat(c) {
			return c.Respond(&tele.CallbackResponse{Text: "Недоступно"})
		}
		ctx, cancel := handlerContext()
		defer cancel()

		code := strings.TrimSpace(c.Data())
		o, err := a.protocol.Apply(ctx, code, act)
		switch {
		case errors.Is(err, handoff.ErrNotFound):
			return c.Respond(&tele.CallbackResponse{Text: "Заказ не найден"})
		case errors.Is(err, handoff.ErrInvalidTransition):
			return c.Respond(&tele.CallbackResponse{Text: "Недоступно из текущего статуса"})
		case err != nil:
			return err
		}

		a.refreshOperatorCard(ctx, c, o)
		return c.Respond(&tele.CallbackResponse{Text: o.Status.Label()})
	}
}

func (a *App) refreshOperatorCard(ctx context.Context, c tele.Context, o models.Order) {
	u, err := a.store.UserByID(ctx, o.UserID)
	if err != nil {
		logger.Handoff.Warn("cannot resolve order owner for card refresh",
			slog.String("event", "handoff.card"),
			slog.String("code", o.Code),
			slog.String("err", err.Error()),
		)
		return
	}
	cnt, err := a.store.CountAttachments(ctx, o.ID)
	if err != nil {
		cnt = 0
	}

	card := format.OperatorCard(o, u, cnt)
	if editErr := c.Edit(card, operatorKeyboard(o)); editErr != nil {
		logger.Handoff.Warn("card refresh failed",
			slog.String("event", "handoff.card"),
			slog.String("code", o.Code),
			slog.String("err", sanitizeError(editErr)),
		)
	}
}

// notifier delivers order events over Telegram. It backs both the commit
// service and the handoff protocol; every failure is logged and swallowed,
// persisted state must never depend on messenger weather.
type notifier struct {
	a *App
}

// NewOrder posts the operator card for a fresh order and re-forwards the
// client's artwork messages after it.
func (n *notifier) NewOrder(ctx context.Context, o models.Order, u models.User, atts []models.Attachment) {
	chatID := n.a.cfg.Operator.ChatID
	if chatID == 0 {
		logger.Handoff.Warn("operator chat not configured, new order not announced",
			slog.String("event", "handoff.notify"),
			slog.String("code", o.Code),
		)
		return
	}

	if err := n.a.send(chatID, "operator.new_order", format.OperatorCard(o, u, len(atts)), operatorKeyboard(o)); err != nil {
		logger.Handoff.Warn("new order announcement failed",
			slog.String("event", "handoff.notify"),
			slog.String("code", o.Code),
			slog.String("err", sanitizeError(err)),
		)
	}

	for _, att := range atts {
		att := att
		if err := n.a.out.Enqueue("operator.forward", func() error {
			msg := tele.StoredMessage{
				MessageID: strconv.Itoa(att.TgMessageID),
				ChatID:    att.FromChatID,
			}
			if _, fwdErr := n.a.bot.Forward(tele.ChatID(chatID), msg); fwdErr == nil {
				return nil
			}
			// the original message may be gone; re-send by file reference
			return n.resendByFileID(chatID, att)
		}); err != nil {
			logger.Handoff.Warn("artwork forward not queued",
				slog.String("event", "handoff.notify"),
				slog.String("code", o.Code),
				slog.String("err", err.Error()),
			)
		}
	}
}

func (n *notifier) resendByFileID(chatID int64, att models.Attachment) error {
	var media tele.Sendable
	if att.Kind == "photo" {
		media = &tele.Photo{File: tele.File{FileID: att.FileID}}
	} else {
		media = &tele.Document{
			File:     tele.File{FileID: att.FileID},
			FileName: att.OriginalName,
		}
	}
	_, err := n.a.bot.Send(tele.ChatID(chatID), media)
	return err
}

// StatusChanged echoes the new status to the order's owner.
func (n *notifier) StatusChanged(ctx context.Context, o models.Order, u models.User) {
	if err := n.a.send(u.TgUserID, "client.status", format.StatusChanged(o)); err != nil {
		logger.Handoff.Warn("status notification failed",
			slog.String("event", "handoff.notify"),
			slog.String("code", o.Code),
			slog.String("err", sanitizeError(err)),
		)
	}
}

// CallRequested pings the operator chat about a client asking for contact.
func (n *notifier) CallRequested(ctx context.Context, u models.User, o *models.Order) {
	chatID := n.a.cfg.Operator.ChatID
	if chatID == 0 {
		logger.Handoff.Warn("operator chat not configured, call request dropped",
			slog.String("event", "handoff.call"),
			slog.Int64("tg_user_id", u.TgUserID),
		)
		return
	}

	text := fmt.Sprintf("📣 Клиент просит связаться\n\n👤 %s", u.DisplayName())
	if o != nil {
		text += fmt.Sprintf("\n📋 Последний заказ: %s (%s)", o.Code, o.Status.Label())
		if o.Contact != "" {
			text += "\n📞 " + o.Contact
		}
	} else {
		text += "\nЗаказов пока нет."
	}
	if err := n.a.send(chatID, "operator.call", text); err != nil {
		logger.Handoff.Warn("call request notification failed",
			slog.String("event", "handoff.call"),
			slog.Int64("tg_user_id", u.TgUserID),
			slog.String("err", sanitizeError(err)),
		)
	}
}
