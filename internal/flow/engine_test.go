package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/vrecdsxcdv/printbot/internal/models"
)

type fakeCommitter struct {
	calls int
	last  Draft
	fail  bool
}

func (f *fakeCommitter) Commit(ctx context.Context, who Identity, d *Draft) (*models.Order, error) {
	f.calls++
	f.last = *d
	if f.fail {
		return nil, errors.New("db down")
	}
	return &models.Order{
		Code:        fmt.Sprintf("260831-%04d", f.calls),
		WhatToPrint: d.WhatToPrint,
		Quantity:    d.Quantity,
		Status:      models.StatusNew,
	}, nil
}

func newTestEngine(c Committer) *Engine {
	loc := time.FixedZone("MSK", 3*3600)
	return NewEngine(c, Options{
		Location:    loc,
		MaxUploadMB: 25,
		Now:         func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, loc) },
	})
}

func newTestSession() *Session {
	return &Session{
		Identity: Identity{TgUserID: 7, Username: "client", ChatID: 7},
		draft:    NewDraft(),
	}
}

func pdfFile(n int) *FileRef {
	return &FileRef{
		ID:        fmt.Sprintf("file-%d", n),
		UniqueID:  fmt.Sprintf("uniq-%d", n),
		Name:      fmt.Sprintf("layout-%d.pdf", n),
		MIME:      "application/pdf",
		SizeBytes: 1 << 20,
		Kind:      "document",
		MessageID: 100 + n,
		ChatID:    7,
	}
}

func photoFile(n int) *FileRef {
	return &FileRef{
		ID:        fmt.Sprintf("photo-%d", n),
		UniqueID:  fmt.Sprintf("photo-uniq-%d", n),
		MIME:      "image/jpeg",
		SizeBytes: 2 << 20,
		Kind:      "photo",
		MessageID: 200 + n,
		ChatID:    7,
	}
}

// drive feeds the scripted inputs one by one and returns the last result.
func drive(t *testing.T, e *Engine, sess *Session, inputs ...Update) Result {
	t.Helper()
	var res Result
	for i, upd := range inputs {
		res = e.Handle(context.Background(), sess, upd)
		if i < len(inputs)-1 && res.Ended {
			t.Fatalf("flow ended early on input %d (%q)", i, upd.Text)
		}
	}
	return res
}

func text(s string) Update { return Update{Text: s} }

func TestFullDialogueEveryCategory(t *testing.T) {
	tests := []struct {
		category string
		inputs   []Update
	}{
		{"Визитки", []Update{
			text("100"), text("2 стороны"), text("Далее"),
			{File: pdfFile(1)}, text("Далее"),
			text("завтра"), text("89991234567"), text("Пропустить"), text("Готово"),
		}},
		{"Флаеры", []Update{
			text("1000"), text("A5 (210×148 мм)"), text("1 сторона"), text("Далее"),
			{File: pdfFile(2)}, text("Далее"),
			text("Пропустить"), text("+7 912 345-67-89"), text("срочно, до обеда"), text("Готово"),
		}},
		{"Плакаты", []Update{
			text("10"), text("A1 (841×594 мм)"), text("1 сторона"), text("Далее"),
			{File: photoFile(3)}, text("Далее"),
			text("Пропустить"), text("89991234567"), text("Пропустить"), text("Готово"),
		}},
		{"Баннеры", []Update{
			text("2"), text("2x1.5"), text("Далее"),
			{File: pdfFile(4)}, text("Далее"),
			text("25.12"), text("89991234567"), text("Пропустить"), text("Готово"),
		}},
		{"Наклейки", []Update{
			text("100"), text("A6 (148×105 мм)"), text("Винил"), text("Ч/Б"), text("1 сторона"), text("Далее"),
			{File: pdfFile(5)}, text("Далее"),
			text("Пропустить"), text("89991234567"), text("Пропустить"), text("Готово"),
		}},
		{"Листы", []Update{
			text("50"), text("A4 (210×297 мм)"), text("Цветная"), text("2 стороны"),
			{File: pdfFile(6)}, text("Далее"),
			text("Пропустить"), text("89991234567"), text("Пропустить"), text("Готово"),
		}},
		{"Другое", []Update{
			text("5"), {File: photoFile(7)}, text("Далее"),
			text("Пропустить"), text("89991234567"), text("нужна фольга"), text("Готово"),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			committer := &fakeCommitter{}
			e := newTestEngine(committer)
			sess := newTestSession()

			e.Start(sess)
			inputs := append([]Update{text(tt.category)}, tt.inputs...)
			res := drive(t, e, sess, inputs...)

			if !res.Ended {
				t.Fatalf("flow did not end; current step %q", sess.Current())
			}
			if res.Order == nil {
				t.Fatal("no order returned on commit")
			}
			if committer.calls != 1 {
				t.Fatalf("committer called %d times; want 1", committer.calls)
			}
			if sess.InFlow() {
				t.Fatal("session still in flow after commit")
			}
		})
	}
}

func TestBusinessCardsDraftContents(t *testing.T) {
	committer := &fakeCommitter{}
	e := newTestEngine(committer)
	sess := newTestSession()

	e.Start(sess)
	drive(t, e, sess,
		text("Визитки"), text("150"), text("2 стороны"), text("Далее"),
		Update{File: pdfFile(1)}, text("Далее"),
		text("завтра"), text("8 999 123 45 67"), text("Пропустить"), text("Готово"),
	)

	d := committer.last
	if d.Category != CategoryBusinessCards {
		t.Errorf("category = %q", d.Category)
	}
	if d.Quantity != 150 {
		t.Errorf("quantity = %d; want 150", d.Quantity)
	}
	if d.Format != "90×50" || d.Paper != "300 г/м²" {
		t.Errorf("fixed card specs not applied: format %q paper %q", d.Format, d.Paper)
	}
	if d.Sides != "2" {
		t.Errorf("sides = %q; want 2", d.Sides)
	}
	if d.Phone != "+79991234567" {
		t.Errorf("phone = %q", d.Phone)
	}
	if d.Deadline == nil {
		t.Error("deadline not set")
	}
	if len(d.Attachments) != 1 {
		t.Errorf("attachments = %d; want 1", len(d.Attachments))
	}
}

func TestQuantityValidationKeepsStep(t *testing.T) {
	e := newTestEngine(&fakeCommitter{})
	sess := newTestSession()

	e.Start(sess)
	e.Handle(context.Background(), sess, text("Визитки"))

	res := e.Handle(context.Background(), sess, text("75"))
	if sess.Current() != StepQuantity {
		t.Fatalf("step = %q; want %q", sess.Current(), StepQuantity)
	}
	if len(res.Prompts) == 0 || !strings.Contains(res.Prompts[0].Text, "кратно 50") {
		t.Fatalf("expected the business-card quantity hint, got %+v", res.Prompts)
	}
}

func TestBackReturnsToPreviousStep(t *testing.T) {
	e := newTestEngine(&fakeCommitter{})
	sess := newTestSession()

	e.Start(sess)
	e.Handle(context.Background(), sess, text("Флаеры"))
	if sess.Current() != StepQuantity {
		t.Fatalf("step = %q; want %q", sess.Current(), StepQuantity)
	}

	res := e.Handle(context.Background(), sess, text("Назад"))
	if sess.Current() != StepCategory {
		t.Fatalf("step after back = %q; want %q", sess.Current(), StepCategory)
	}
	if len(res.Prompts) == 0 || res.Prompts[len(res.Prompts)-1].Text != msgAskCategory {
		t.Fatalf("category prompt not re-rendered: %+v", res.Prompts)
	}

	// backing out of the last frame leaves the flow
	res = e.Handle(context.Background(), sess, text("Назад"))
	if !res.Ended || sess.InFlow() {
		t.Fatal("expected to leave the flow")
	}
}

func TestCancelChoice(t *testing.T) {
	t.Run("step only", func(t *testing.T) {
		e := newTestEngine(&fakeCommitter{})
		sess := newTestSession()

		e.Start(sess)
		e.Handle(context.Background(), sess, text("Флаеры"))
		e.Handle(context.Background(), sess, text("Отмена"))
		if sess.Current() != StepCancelChoice {
			t.Fatalf("step = %q; want %q", sess.Current(), StepCancelChoice)
		}

		e.Handle(context.Background(), sess, text("Только этот шаг"))
		if sess.Current() != StepCategory {
			t.Fatalf("step = %q; want %q", sess.Current(), StepCategory)
		}
	})

	t.Run("whole order", func(t *testing.T) {
		e := newTestEngine(&fakeCommitter{})
		sess := newTestSession()

		e.Start(sess)
		e.Handle(context.Background(), sess, text("Флаеры"))
		e.Handle(context.Background(), sess, text("Отмена"))
		res := e.Handle(context.Background(), sess, text("Полностью отменить заказ"))
		if !res.Ended || sess.InFlow() {
			t.Fatal("cancel all should end the flow")
		}
		if len(res.Prompts) == 0 || res.Prompts[0].Text != msgOrderCancelled {
			t.Fatalf("prompts = %+v", res.Prompts)
		}
	})
}

func TestRedeliveredMessageDiscarded(t *testing.T) {
	e := newTestEngine(&fakeCommitter{})
	sess := newTestSession()

	e.Start(sess)
	e.Handle(context.Background(), sess, text("Визитки"))

	first := e.Handle(context.Background(), sess, Update{Text: "abc", MessageID: 301})
	if len(first.Prompts) == 0 {
		t.Fatal("validation reply expected")
	}
	redelivered := e.Handle(context.Background(), sess, Update{Text: "abc", MessageID: 301})
	if len(redelivered.Prompts) != 0 || redelivered.Ended {
		t.Fatalf("redelivered message not discarded: %+v", redelivered)
	}

	// the same text typed again is a new message and earns the error again
	repeated := e.Handle(context.Background(), sess, Update{Text: "abc", MessageID: 302})
	if len(repeated.Prompts) == 0 || !strings.Contains(repeated.Prompts[0].Text, "целое число") {
		t.Fatalf("repeated invalid input swallowed: %+v", repeated)
	}
	if sess.Current() != StepQuantity {
		t.Fatalf("step = %q; want %q", sess.Current(), StepQuantity)
	}
}

func TestRepeatedPressesOnSameStep(t *testing.T) {
	e := newTestEngine(&fakeCommitter{})
	sess := newTestSession()

	e.Start(sess)
	drive(t, e, sess, text("Флаеры"), text("100"), text("A6 (148×105 мм)"), text("1 сторона"))
	if sess.Current() != StepFinishing {
		t.Fatalf("step = %q; want %q", sess.Current(), StepFinishing)
	}

	e.Handle(context.Background(), sess, Update{Text: "Ламинация (мат)", MessageID: 401})
	e.Handle(context.Background(), sess, Update{Text: "Ламинация (мат)", MessageID: 402})
	if d := sess.Snapshot(); d.Lamination != "none" {
		t.Fatalf("second press of the active option ignored: lamination = %q", d.Lamination)
	}

	e.Handle(context.Background(), sess, Update{Text: "Скругление углов", MessageID: 403})
	e.Handle(context.Background(), sess, Update{Text: "Скругление углов", MessageID: 404})
	if d := sess.Snapshot(); d.CornerRounding {
		t.Fatal("corner rounding not toggled back off")
	}
}

func TestCommitRunsOnce(t *testing.T) {
	committer := &fakeCommitter{}
	e := newTestEngine(committer)
	sess := newTestSession()

	e.Start(sess)
	res := drive(t, e, sess,
		text("Другое"), text("5"), Update{File: photoFile(1)}, text("Далее"),
		text("Пропустить"), text("89991234567"), text("Пропустить"), text("Готово"),
	)
	if !res.Ended || res.Order == nil {
		t.Fatal("commit did not complete")
	}

	// a redelivered submit after the session reset must be a no-op
	again := e.Handle(context.Background(), sess, text("Готово"))
	if again.Order != nil || committer.calls != 1 {
		t.Fatalf("duplicate submit committed again: calls=%d", committer.calls)
	}
}

func TestCommitFailureClearsSession(t *testing.T) {
	committer := &fakeCommitter{fail: true}
	e := newTestEngine(committer)
	sess := newTestSession()

	e.Start(sess)
	res := drive(t, e, sess,
		text("Другое"), text("5"), Update{File: photoFile(1)}, text("Далее"),
		text("Пропустить"), text("89991234567"), text("Пропустить"), text("Готово"),
	)
	if !res.Ended || res.Order != nil {
		t.Fatalf("failed commit result = %+v", res)
	}
	if sess.InFlow() {
		t.Fatal("session must be cleared after a failed commit")
	}
	if len(res.Prompts) == 0 || !strings.Contains(res.Prompts[0].Text, "Не удалось создать заказ") {
		t.Fatalf("prompts = %+v", res.Prompts)
	}
}

func TestBusinessCardsRejectNonPDF(t *testing.T) {
	e := newTestEngine(&fakeCommitter{})
	sess := newTestSession()

	e.Start(sess)
	drive(t, e, sess, text("Визитки"), text("100"), text("1 сторона"), text("Далее"))
	if sess.Current() != StepUpload {
		t.Fatalf("step = %q; want %q", sess.Current(), StepUpload)
	}

	res := e.Handle(context.Background(), sess, Update{File: photoFile(1)})
	if len(res.Prompts) == 0 || !strings.Contains(res.Prompts[0].Text, "PDF") {
		t.Fatalf("photo accepted for business cards: %+v", res.Prompts)
	}
	if sess.Snapshot().Attachments != nil {
		t.Fatal("rejected file stored in draft")
	}

	// moving on without a valid artwork is refused too
	e.Handle(context.Background(), sess, text("Далее"))
	if sess.Current() != StepUpload {
		t.Fatalf("advanced without artwork to %q", sess.Current())
	}
}

func TestUploadSizeCap(t *testing.T) {
	e := newTestEngine(&fakeCommitter{})
	sess := newTestSession()

	e.Start(sess)
	drive(t, e, sess, text("Другое"), text("5"))

	big := pdfFile(1)
	big.SizeBytes = 26 << 20
	res := e.Handle(context.Background(), sess, Update{File: big})
	if len(res.Prompts) == 0 || !strings.Contains(res.Prompts[0].Text, "слишком большой") {
		t.Fatalf("oversized file accepted: %+v", res.Prompts)
	}
}

func TestFinishingToggles(t *testing.T) {
	e := newTestEngine(&fakeCommitter{})
	sess := newTestSession()

	e.Start(sess)
	drive(t, e, sess, text("Флаеры"), text("100"), text("A6 (148×105 мм)"), text("1 сторона"))
	if sess.Current() != StepFinishing {
		t.Fatalf("step = %q; want %q", sess.Current(), StepFinishing)
	}

	e.Handle(context.Background(), sess, text("Ламинация (мат)"))
	if d := sess.Snapshot(); d.Lamination != "matte" {
		t.Fatalf("lamination = %q; want matte", d.Lamination)
	}
	// same option again toggles it off
	e.Handle(context.Background(), sess, text("Ламинация (мат)"))
	if d := sess.Snapshot(); d.Lamination != "none" {
		t.Fatalf("lamination = %q; want none", d.Lamination)
	}

	e.Handle(context.Background(), sess, text("Биговка"))
	if sess.Current() != StepCreaseCount {
		t.Fatalf("step = %q; want %q", sess.Current(), StepCreaseCount)
	}
	e.Handle(context.Background(), sess, text("3"))
	if sess.Current() != StepFinishing {
		t.Fatalf("crease sub-step did not return, step = %q", sess.Current())
	}
	if d := sess.Snapshot(); d.CreaseCount != 3 {
		t.Fatalf("crease count = %d; want 3", d.CreaseCount)
	}

	e.Handle(context.Background(), sess, text("Без обработки"))
	if d := sess.Snapshot(); d.CreaseCount != 0 || d.Lamination != "none" || d.CornerRounding {
		t.Fatalf("finishing not reset: %+v", d)
	}
}

func TestStartResetsAbandonedFlow(t *testing.T) {
	e := newTestEngine(&fakeCommitter{})
	sess := newTestSession()

	e.Start(sess)
	drive(t, e, sess, text("Баннеры"), text("2"))
	if d := sess.Snapshot(); d.Category != CategoryBanners {
		t.Fatalf("category = %q", d.Category)
	}

	res := e.Start(sess)
	if sess.Current() != StepCategory || sess.Depth() != 1 {
		t.Fatalf("restart left stack %q depth %d", sess.Current(), sess.Depth())
	}
	if d := sess.Snapshot(); d.Category != "" || d.Quantity != 0 {
		t.Fatalf("restart kept draft: %+v", d)
	}
	if len(res.Prompts) == 0 || res.Prompts[0].Text != msgAskCategory {
		t.Fatalf("prompts = %+v", res.Prompts)
	}
}
