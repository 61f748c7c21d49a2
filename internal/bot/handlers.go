package bot

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/vrecdsxcdv/printbot/internal/flow"
	"github.com/vrecdsxcdv/printbot/internal/format"
	"github.com/vrecdsxcdv/printbot/internal/models"
)

const handlerTimeout = 10 * time.Second

const greetingText = `👋 Здравствуйте! Это бот типографии.

Здесь можно оформить заказ на печать: визитки, флаеры, плакаты,
баннеры, наклейки и не только.

🖨 Сделать заказ — начать оформление
📦 Мои заказы — статус ваших заказов
📞 Оператор — связаться с человеком`

const helpText = `Команды:
/order — оформить заказ
/status — мои заказы
/call_operator — позвать оператора
/cancel — прервать оформление

Во время оформления работают кнопки «Назад» и «Отмена».`

var (
	btnStatusPage = tele.Btn{Unique: "status_page"}
	btnStatusShow = tele.Btn{Unique: "status_show"}
)

func (a *App) routes() {
	b := a.bot
	b.Use(recoverMiddleware, loggerMiddleware)

	b.Handle("/start", a.handleStart)
	b.Handle("/help", a.handleHelp)
	b.Handle("/order", a.handleOrder)
	b.Handle("/status", a.handleStatus)
	b.Handle("/call_operator", a.handleCallOperator)
	b.Handle("/cancel", a.handleCancel)

	b.Handle(tele.OnText, a.handleText)
	b.Handle(tele.OnDocument, a.handleDocument)
	b.Handle(tele.OnPhoto, a.handlePhoto)

	b.Handle(&btnStatusPage, a.cbStatusPage)
	b.Handle(&btnStatusShow, a.cbStatusShow)
	a.operatorRoutes()
}

func handlerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), handlerTimeout)
}

// identity extracts the sender identity the engine and services key on.
func identity(c tele.Context) flow.Identity {
	id := flow.Identity{}
	if u := c.Sender(); u != nil {
		id.TgUserID = u.ID
		id.Username = u.Username
		id.FirstName = u.FirstName
		id.LastName = u.LastName
	}
	if ch := c.Chat(); ch != nil {
		id.ChatID = ch.ID
	}
	return id
}

func (a *App) upsertSender(ctx context.Context, c tele.Context) (models.User, error) {
	id := identity(c)
	return a.store.UpsertUser(ctx, models.User{
		TgUserID:  id.TgUserID,
		Username:  id.Username,
		FirstName: id.FirstName,
		LastName:  id.LastName,
	})
}

func (a *App) handleStart(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()

	if _, err := a.upsertSender(ctx, c); err != nil {
		return err
	}
	a.sessions.Delete(identity(c).TgUserID)
	return a.send(c.Chat().ID, "start", greetingText, homeKeyboard())
}

func (a *App) handleHelp(c tele.Context) error {
	return a.send(c.Chat().ID, "help", helpText, homeKeyboard())
}

func (a *App) handleOrder(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()

	if _, err := a.upsertSender(ctx, c); err != nil {
		return err
	}
	sess := a.sessions.Get(identity(c))
	return a.deliver(c, a.engine.Start(sess))
}

func (a *App) handleCancel(c tele.Context) error {
	id := identity(c)
	if !a.sessions.Active(id.TgUserID) {
		return a.send(c.Chat().ID, "cancel", "Сейчас нет активного оформления заказа.", homeKeyboard())
	}
	return a.feedEngine(c, flow.Update{Text: "/cancel", MessageID: c.Message().ID})
}

// handleText routes free text: into the active flow, or as a home-keyboard
// action, or falls back to a hint.
func (a *App) handleText(c tele.Context) error {
	if a.isOperatorChat(c) {
		return nil
	}
	id := identity(c)
	if a.sessions.Active(id.TgUserID) {
		return a.feedEngine(c, flow.Update{Text: c.Text(), MessageID: c.Message().ID})
	}

	switch t := strings.ToLower(strings.TrimSpace(stripEmoji(c.Text()))); {
	case strings.Contains(t, "сделать заказ"):
		return a.handleOrder(c)
	case strings.Contains(t, "мои заказы"):
		return a.handleStatus(c)
	case strings.Contains(t, "оператор"):
		return a.handleCallOperator(c)
	case strings.Contains(t, "помощь"):
		return a.handleHelp(c)
	}
	return a.send(c.Chat().ID, "hint",
		"Не понял. Нажмите «🖨 Сделать заказ» или посмотрите /help.", homeKeyboard())
}

func (a *App) handleDocument(c tele.Context) error {
	if a.isOperatorChat(c) {
		return nil
	}
	doc := c.Message().Document
	if doc == nil {
		return nil
	}
	ref := flow.FileRef{
		ID:        doc.FileID,
		UniqueID:  doc.UniqueID,
		Name:      doc.FileName,
		MIME:      doc.MIME,
		SizeBytes: doc.FileSize,
		Kind:      "document",
		MessageID: c.Message().ID,
		ChatID:    c.Chat().ID,
	}
	return a.feedFile(c, ref)
}

func (a *App) handlePhoto(c tele.Context) error {
	if a.isOperatorChat(c) {
		return nil
	}
	photo := c.Message().Photo
	if photo == nil {
		return nil
	}
	ref := flow.FileRef{
		ID:        photo.FileID,
		UniqueID:  photo.UniqueID,
		MIME:      "image/jpeg",
		SizeBytes: photo.FileSize,
		Kind:      "photo",
		MessageID: c.Message().ID,
		ChatID:    c.Chat().ID,
	}
	return a.feedFile(c, ref)
}

func (a *App) feedFile(c tele.Context, ref flow.FileRef) error {
	id := identity(c)
	if !a.sessions.Active(id.TgUserID) {
		return a.send(c.Chat().ID, "hint",
			"Файлы принимаются при оформлении заказа. Нажмите «🖨 Сделать заказ».", homeKeyboard())
	}
	return a.feedEngine(c, flow.Update{File: &ref, MessageID: ref.MessageID})
}

func (a *App) feedEngine(c tele.Context, upd flow.Update) error {
	ctx, cancel := handlerContext()
	defer cancel()

	sess := a.sessions.Get(identity(c))
	return a.deliver(c, a.engine.Handle(ctx, sess, upd))
}

// deliver renders an engine result as a single message: notices and the
// next prompt collapse together, the keyboard comes from the last prompt or
// reverts to the home keyboard when the flow ended.
func (a *App) deliver(c tele.Context, res flow.Result) error {
	if len(res.Prompts) == 0 {
		return nil
	}
	parts := make([]string, 0, len(res.Prompts))
	for _, p := range res.Prompts {
		parts = append(parts, p.Text)
	}
	text := strings.Join(parts, "\n\n")

	markup := homeKeyboard()
	if !res.Ended {
		if last := res.Prompts[len(res.Prompts)-1]; len(last.Choices) > 0 {
			markup = replyButtons(last.Choices...)
		} else {
			markup = removeKeyboard()
		}
	}
	return a.send(c.Chat().ID, "flow.prompt", text, markup)
}

func (a *App) handleStatus(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()

	user, err := a.upsertSender(ctx, c)
	if err != nil {
		return err
	}
	text, markup, err := a.statusPage(ctx, user.ID, 1)
	if err != nil {
		return err
	}
	return a.send(c.Chat().ID, "status", text, markup)
}

func (a *App) cbStatusPage(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()

	page, err := strconv.Atoi(strings.TrimSpace(c.Data()))
	if err != nil || page < 1 {
		page = 1
	}
	user, err := a.upsertSender(ctx, c)
	if err != nil {
		return err
	}
	text, markup, err := a.statusPage(ctx, user.ID, page)
	if err != nil {
		return err
	}
	if markup != nil {
		if err := c.Edit(text, markup); err != nil {
			return err
		}
	} else if err := c.Edit(text); err != nil {
		return err
	}
	return c.Respond()
}

// statusPage builds one page of the customer's order list plus pagination
// buttons. page is 1-based and clamped into range.
func (a *App) statusPage(ctx context.Context, userID int64, page int) (string, *tele.ReplyMarkup, error) {
	size := a.cfg.App.OrdersPageSize
	list, total, err := a.store.OrdersByUser(ctx, userID, size, (page-1)*size)
	if err != nil {
		return "", nil, err
	}
	pages := (total + size - 1) / size
	if pages > 0 && page > pages {
		page = pages
		list, _, err = a.store.OrdersByUser(ctx, userID, size, (page-1)*size)
		if err != nil {
			return "", nil, err
		}
	}

	text := format.StatusPage(list, page, pages)
	if len(list) == 0 {
		return text, nil, nil
	}

	// one details button per listed order, then the pagination row
	var rows [][]inlineBtn
	for _, o := range list {
		rows = append(rows, []inlineBtn{{Text: "📋 " + o.Code, Unique: btnStatusShow.Unique, Data: o.Code}})
	}
	if pages > 1 {
		var nav []inlineBtn
		if page > 1 {
			nav = append(nav, inlineBtn{Text: "⬅️", Unique: btnStatusPage.Unique, Data: strconv.Itoa(page - 1)})
		}
		if page < pages {
			nav = append(nav, inlineBtn{Text: "➡️", Unique: btnStatusPage.Unique, Data: strconv.Itoa(page + 1)})
		}
		rows = append(rows, nav)
	}
	return text, inlineRows(rows...), nil
}

// cbStatusShow sends the detailed card of one order, owner only.
func (a *App) cbStatusShow(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()

	user, err := a.upsertSender(ctx, c)
	if err != nil {
		return err
	}
	o, err := a.store.OrderByCode(ctx, strings.TrimSpace(c.Data()))
	if err != nil || o.UserID != user.ID {
		return c.Respond(&tele.CallbackResponse{Text: "Заказ не найден"})
	}
	cnt, err := a.store.CountAttachments(ctx, o.ID)
	if err != nil {
		cnt = 0
	}
	if err := a.send(c.Chat().ID, "status.show", format.CustomerCard(o, cnt)); err != nil {
		return err
	}
	return c.Respond()
}

func (a *App) handleCallOperator(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()

	user, err := a.upsertSender(ctx, c)
	if err != nil {
		return err
	}
	if _, err := a.protocol.CallOperator(ctx, user); err != nil {
		return err
	}
	return a.send(c.Chat().ID, "call_operator",
		"📞 Передал оператору, с вами свяжутся в рабочее время.", homeKeyboard())
}

var emojiTrimRE = regexp.MustCompile(`[\x{2190}-\x{21FF}\x{2300}-\x{23FF}\x{2600}-\x{27BF}\x{2B00}-\x{2BFF}\x{FE0F}\x{1F000}-\x{1FAFF}]+`)

func stripEmoji(s string) string {
	return emojiTrimRE.ReplaceAllString(s, "")
}
