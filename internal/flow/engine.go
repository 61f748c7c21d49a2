package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/vrecdsxcdv/printbot/internal/logger"
	"github.com/vrecdsxcdv/printbot/internal/models"
)

// Update is one incoming client input, already stripped of transport
// details by the bot layer. MessageID identifies the Telegram message so
// redeliveries can be told apart from repeated presses; zero for synthetic
// inputs.
type Update struct {
	Text      string
	File      *FileRef
	MessageID int
}

// Prompt is one outgoing message: text plus an optional reply keyboard
// layout. The bot layer decides how to render the rows.
type Prompt struct {
	Text    string
	Choices [][]string
}

// Result is what one engine interaction produced. Ended means the session
// left the flow: after a commit, a full cancel or an exhausted stack.
type Result struct {
	Prompts []Prompt
	Ended   bool
	Order   *models.Order
}

// Committer persists a completed draft as an order. The engine treats the
// commit as all-or-nothing and clears the session either way.
type Committer interface {
	Commit(ctx context.Context, who Identity, d *Draft) (*models.Order, error)
}

// Options tune the engine; zero values fall back to sane defaults.
type Options struct {
	Location    *time.Location
	MaxUploadMB int64
	Now         func() time.Time
}

// Engine drives sessions through the step graph. It is stateless itself,
// safe for concurrent use across sessions.
type Engine struct {
	committer   Committer
	loc         *time.Location
	maxUploadMB int64
	now         func() time.Time
	log         *slog.Logger
}

// NewEngine builds the conversation engine on top of a committer.
func NewEngine(committer Committer, opts Options) *Engine {
	e := &Engine{
		committer:   committer,
		loc:         opts.Location,
		maxUploadMB: opts.MaxUploadMB,
		now:         opts.Now,
		log:         logger.Flow,
	}
	if e.loc == nil {
		e.loc = time.Local
	}
	if e.maxUploadMB <= 0 {
		e.maxUploadMB = 25
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Start resets the session and opens the flow at the category step.
func (e *Engine) Start(sess *Session) Result {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.reset()
	sess.push(StepCategory)
	e.log.Info("flow started",
		slog.String("event", "flow.start"),
		slog.Int64("tg_user_id", sess.Identity.TgUserID),
	)
	return Result{Prompts: []Prompt{e.renderStep(StepCategory, &sess.draft)}}
}

// Handle feeds one input into the session. Inputs for the same session are
// serialized by its mutex; a redelivery of an already processed message is
// silently discarded.
func (e *Engine) Handle(ctx context.Context, sess *Session, upd Update) Result {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	cur := sess.Current()
	if cur == "" {
		return Result{Ended: true}
	}
	if sess.duplicate(upd.MessageID) {
		e.log.Debug("redelivered update discarded",
			slog.String("event", "flow.dup"),
			slog.Int("message_id", upd.MessageID),
			slog.Int64("tg_user_id", sess.Identity.TgUserID),
		)
		return Result{}
	}

	// Back and cancel work on every step, ahead of step-specific handling.
	if upd.File == nil {
		if isToken(upd.Text, tokenBack) {
			return e.back(sess)
		}
		if isToken(upd.Text, tokenCancel) && cur != StepCancelChoice {
			sess.push(StepCancelChoice)
			return Result{Prompts: []Prompt{e.renderStep(StepCancelChoice, &sess.draft)}}
		}
	}

	spec, ok := stepTable[cur]
	if !ok {
		// corrupted stack: restart rather than strand the user
		e.log.Warn("unknown step on stack, restarting flow",
			slog.String("event", "flow.badstep"),
			slog.String("step", string(cur)),
			slog.Int64("tg_user_id", sess.Identity.TgUserID),
		)
		sess.reset()
		sess.push(StepCategory)
		return Result{Prompts: []Prompt{e.renderStep(StepCategory, &sess.draft)}}
	}

	r := spec.apply(e, &sess.draft, upd)
	switch r.action {
	case actAdvance:
		next := spec.next(&sess.draft)
		sess.push(next)
		return e.withNotice(r.msg, e.renderStep(next, &sess.draft))
	case actEnter:
		sess.push(r.target)
		return e.withNotice(r.msg, e.renderStep(r.target, &sess.draft))
	case actBack:
		res := e.back(sess)
		if r.msg != "" {
			res.Prompts = append([]Prompt{textPrompt(r.msg)}, res.Prompts...)
		}
		return res
	case actCancelStep:
		sess.pop() // drop the cancel menu itself
		return e.back(sess)
	case actCancelAll:
		sess.reset()
		e.log.Info("flow cancelled",
			slog.String("event", "flow.cancel"),
			slog.Int64("tg_user_id", sess.Identity.TgUserID),
		)
		return Result{Ended: true, Prompts: []Prompt{textPrompt(msgOrderCancelled)}}
	case actCommit:
		return e.commit(ctx, sess)
	default:
		return e.withNotice(r.msg, e.renderStep(cur, &sess.draft))
	}
}

func (e *Engine) withNotice(msg string, p Prompt) Result {
	if msg == "" {
		return Result{Prompts: []Prompt{p}}
	}
	return Result{Prompts: []Prompt{textPrompt(msg), p}}
}

// back pops one frame and re-renders the uncovered step. Popping the last
// frame leaves the flow entirely.
func (e *Engine) back(sess *Session) Result {
	prev, ok := sess.pop()
	if !ok {
		sess.reset()
		return Result{Ended: true, Prompts: []Prompt{textPrompt(msgFlowLeft)}}
	}
	return Result{Prompts: []Prompt{e.renderStep(prev, &sess.draft)}}
}

func (e *Engine) renderStep(step Step, d *Draft) Prompt {
	spec, ok := stepTable[step]
	if !ok {
		return textPrompt(remindUseButtons)
	}
	return spec.prompt(e, d)
}

// commit hands the draft to the committer and clears the session whether
// the commit succeeded or not, so a retry starts a fresh flow instead of
// resubmitting a half-cleared draft.
func (e *Engine) commit(ctx context.Context, sess *Session) Result {
	draft := sess.draft
	who := sess.Identity
	sess.reset()

	order, err := e.committer.Commit(ctx, who, &draft)
	if err != nil {
		e.log.Error("order commit failed",
			slog.String("event", "flow.commit"),
			slog.String("status", "error"),
			slog.Int64("tg_user_id", who.TgUserID),
			slog.String("err", err.Error()),
		)
		return Result{Ended: true, Prompts: []Prompt{textPrompt(msgCommitFailed)}}
	}

	e.log.Info("order committed",
		slog.String("event", "flow.commit"),
		slog.String("status", "ok"),
		slog.Int64("tg_user_id", who.TgUserID),
		slog.String("code", order.Code),
	)
	return Result{
		Ended:   true,
		Order:   order,
		Prompts: []Prompt{textPrompt(commitSuccessText(order.Code, order.WhatToPrint, order.Quantity))},
	}
}
