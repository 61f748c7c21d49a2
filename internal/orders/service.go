// Package orders turns completed drafts into persisted orders and fans the
// result out to the operator channel.
package orders

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/vrecdsxcdv/printbot/internal/flow"
	"github.com/vrecdsxcdv/printbot/internal/logger"
	"github.com/vrecdsxcdv/printbot/internal/models"
)

// Store is the slice of persistence the commit service needs.
type Store interface {
	UpsertUser(ctx context.Context, u models.User) (models.User, error)
	CreateOrder(ctx context.Context, o *models.Order, atts []models.Attachment) error
}

// Notifier announces a freshly committed order to the operator chat.
// Implementations must not block the commit: delivery failures are theirs
// to log and swallow.
type Notifier interface {
	NewOrder(ctx context.Context, o models.Order, u models.User, atts []models.Attachment)
}

// Service implements the draft commit. It satisfies flow.Committer.
type Service struct {
	store    Store
	notifier Notifier
	log      *slog.Logger
}

// New builds the commit service. notifier may be nil in tests.
func New(store Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier, log: logger.Orders}
}

// Commit persists the draft under a fresh order code. The client record is
// upserted first so the order always references a live user row.
func (s *Service) Commit(ctx context.Context, who flow.Identity, d *flow.Draft) (*models.Order, error) {
	user, err := s.store.UpsertUser(ctx, models.User{
		TgUserID:  who.TgUserID,
		Username:  who.Username,
		FirstName: who.FirstName,
		LastName:  who.LastName,
	})
	if err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}

	order := fromDraft(d, user.ID)
	atts := attachmentsFromDraft(d)
	if err := s.store.CreateOrder(ctx, order, atts); err != nil {
		return nil, err
	}

	s.log.Info("order created",
		slog.String("event", "order.commit"),
		slog.String("status", "ok"),
		slog.String("code", order.Code),
		slog.Int64("tg_user_id", who.TgUserID),
		slog.String("category", string(d.Category)),
		slog.Int("quantity", order.Quantity),
		slog.Int("attachments", len(atts)),
	)

	if s.notifier != nil {
		s.notifier.NewOrder(ctx, *order, user, atts)
	}
	return order, nil
}

func fromDraft(d *flow.Draft, userID int64) *models.Order {
	o := &models.Order{
		UserID:         userID,
		WhatToPrint:    d.WhatToPrint,
		Quantity:       d.Quantity,
		Format:         d.Format,
		SheetFormat:    d.SheetFormat,
		CustomSize:     d.CustomSize,
		Sides:          d.Sides,
		Paper:          d.Paper,
		Material:       d.Material,
		PrintColor:     d.PrintColor,
		Lamination:     d.Lamination,
		CreaseCount:    d.CreaseCount,
		CornerRounding: d.CornerRounding,
		Contact:        d.Phone,
		Notes:          d.Notes,
		Status:         models.StatusNew,
	}
	if d.Deadline != nil {
		o.DeadlineAt = sql.NullTime{Time: *d.Deadline, Valid: true}
	}
	return o
}

func attachmentsFromDraft(d *flow.Draft) []models.Attachment {
	atts := make([]models.Attachment, 0, len(d.Attachments))
	for _, f := range d.Attachments {
		atts = append(atts, models.Attachment{
			FileID:       f.ID,
			FileUniqueID: f.UniqueID,
			OriginalName: f.Name,
			MIME:         f.MIME,
			SizeBytes:    f.SizeBytes,
			TgMessageID:  f.MessageID,
			FromChatID:   f.ChatID,
			Kind:         f.Kind,
		})
	}
	return atts
}
