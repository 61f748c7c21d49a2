// Package handoff implements the operator side of an order's life: the
// status transition protocol and the client call-back requests.
package handoff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vrecdsxcdv/printbot/internal/logger"
	"github.com/vrecdsxcdv/printbot/internal/models"
	"github.com/vrecdsxcdv/printbot/internal/storage"
)

// Action is an operator command over an order.
type Action string

const (
	ActionTake     Action = "take"      // NEW -> IN_PROGRESS
	ActionNeedsFix Action = "needs_fix" // IN_PROGRESS -> WAITING_CLIENT
	ActionResume   Action = "resume"    // WAITING_CLIENT -> IN_PROGRESS
	ActionReady    Action = "ready"     // IN_PROGRESS -> READY
	ActionCancel   Action = "cancel"    // any non-terminal -> CANCELLED
)

var (
	// ErrNotFound means the order code does not exist.
	ErrNotFound = errors.New("handoff: order not found")
	// ErrInvalidTransition means the action is not legal from the order's
	// current status.
	ErrInvalidTransition = errors.New("handoff: invalid transition")
)

var actionTarget = map[Action]models.OrderStatus{
	ActionTake:     models.StatusInProgress,
	ActionNeedsFix: models.StatusWaitingClient,
	ActionResume:   models.StatusInProgress,
	ActionReady:    models.StatusReady,
	ActionCancel:   models.StatusCancelled,
}

// transitions lists the statuses reachable from each status. READY and
// CANCELLED are terminal.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.StatusNew:           {models.StatusInProgress, models.StatusCancelled},
	models.StatusInProgress:    {models.StatusWaitingClient, models.StatusReady, models.StatusCancelled},
	models.StatusWaitingClient: {models.StatusInProgress, models.StatusCancelled},
}

// CanTransition reports whether the status graph allows from -> to.
func CanTransition(from, to models.OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Store is the slice of persistence the protocol needs.
type Store interface {
	OrderByCode(ctx context.Context, code string) (models.Order, error)
	UpdateStatus(ctx context.Context, code string, status models.OrderStatus, needsOperator bool) (models.Order, error)
	SetNeedsOperator(ctx context.Context, code string, needs bool) error
	UserByID(ctx context.Context, id int64) (models.User, error)
	LatestOrderByUser(ctx context.Context, userID int64) (models.Order, error)
}

// Notifier delivers handoff side effects. Delivery failures must be logged
// by the implementation, never returned: a status change that already hit
// the database is a fact regardless of messenger weather.
type Notifier interface {
	// StatusChanged tells the order's owner about the new status.
	StatusChanged(ctx context.Context, o models.Order, u models.User)
	// CallRequested tells the operator chat a client asks to be contacted.
	// order is nil when the client has no orders yet.
	CallRequested(ctx context.Context, u models.User, o *models.Order)
}

// Protocol applies operator actions to orders.
type Protocol struct {
	store    Store
	notifier Notifier
	log      *slog.Logger
}

// New builds the protocol. notifier may be nil in tests.
func New(store Store, notifier Notifier) *Protocol {
	return &Protocol{store: store, notifier: notifier, log: logger.Handoff}
}

// Apply executes one operator action against the order identified by code
// and returns the updated order. Exactly one client notification is sent
// per successful transition.
func (p *Protocol) Apply(ctx context.Context, code string, act Action) (models.Order, error) {
	target, ok := actionTarget[act]
	if !ok {
		return models.Order{}, fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, act)
	}

	o, err := p.store.OrderByCode(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Order{}, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("apply %s to %s: %w", act, code, err)
	}

	if !CanTransition(o.Status, target) {
		return models.Order{}, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, act, o.Status)
	}

	// a revision request puts the order back in the client's hands, so it
	// raises the attention flag; every other action answers it
	updated, err := p.store.UpdateStatus(ctx, code, target, act == ActionNeedsFix)
	if err != nil {
		return models.Order{}, fmt.Errorf("apply %s to %s: %w", act, code, err)
	}

	p.log.Info("order status changed",
		slog.String("event", "handoff.apply"),
		slog.String("status", "ok"),
		slog.String("code", code),
		slog.String("action", string(act)),
		slog.String("from", string(o.Status)),
		slog.String("to", string(updated.Status)),
	)

	if p.notifier != nil {
		if u, err := p.store.UserByID(ctx, updated.UserID); err != nil {
			p.log.Warn("cannot resolve order owner for notification",
				slog.String("event", "handoff.notify"),
				slog.String("code", code),
				slog.String("err", err.Error()),
			)
		} else {
			p.notifier.StatusChanged(ctx, updated, u)
		}
	}
	return updated, nil
}

// CallOperator flags the client's latest order with needs_operator and
// pings the operator chat. A client with no orders still gets the operator
// notified, just without an order card.
func (p *Protocol) CallOperator(ctx context.Context, u models.User) (*models.Order, error) {
	o, err := p.store.LatestOrderByUser(ctx, u.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		p.log.Info("call operator without orders",
			slog.String("event", "handoff.call"),
			slog.Int64("tg_user_id", u.TgUserID),
		)
		if p.notifier != nil {
			p.notifier.CallRequested(ctx, u, nil)
		}
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("call operator: %w", err)
	}

	if err := p.store.SetNeedsOperator(ctx, o.Code, true); err != nil {
		return nil, fmt.Errorf("call operator: %w", err)
	}
	o.NeedsOperator = true

	p.log.Info("operator called",
		slog.String("event", "handoff.call"),
		slog.String("code", o.Code),
		slog.Int64("tg_user_id", u.TgUserID),
	)
	if p.notifier != nil {
		p.notifier.CallRequested(ctx, u, &o)
	}
	return &o, nil
}
