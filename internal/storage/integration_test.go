//go:build integration

package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vrecdsxcdv/printbot/internal/models"
)

// Round-trip tests against a real migrated database:
//
//	PRINTBOT_TEST_DSN=postgres://... go test -tags integration ./internal/storage
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("PRINTBOT_TEST_DSN")
	if dsn == "" {
		t.Skip("PRINTBOT_TEST_DSN not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func (s *Store) deleteOrderTree(t *testing.T, o models.Order) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM attachments WHERE order_id = $1`, o.ID); err != nil {
		t.Errorf("cleanup attachments: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, o.ID); err != nil {
		t.Errorf("cleanup order: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, o.UserID); err != nil {
		t.Errorf("cleanup user: %v", err)
	}
}

func TestOrderRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	u, err := s.UpsertUser(ctx, models.User{
		TgUserID:  time.Now().UnixNano(),
		Username:  "roundtrip",
		FirstName: "Round",
		LastName:  "Trip",
	})
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}

	deadline := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	in := models.Order{
		UserID:      u.ID,
		WhatToPrint: "Флаеры",
		Quantity:    1000,
		Format:      "148×105",
		SheetFormat: "A6",
		Sides:       "2",
		Paper:       "130 г/м²",
		PrintColor:  "color",
		Lamination:  "matte",
		CreaseCount: 2,
		DeadlineAt:  sql.NullTime{Time: deadline, Valid: true},
		Contact:     "+79991234567",
		Notes:       "срочно",
	}
	atts := []models.Attachment{{
		FileID:       "file-rt",
		FileUniqueID: "uniq-rt",
		OriginalName: "layout.pdf",
		MIME:         "application/pdf",
		SizeBytes:    1 << 20,
		TgMessageID:  10,
		FromChatID:   7,
		Kind:         "document",
	}}
	if err := s.CreateOrder(ctx, &in, atts); err != nil {
		t.Fatalf("create order: %v", err)
	}
	t.Cleanup(func() { s.deleteOrderTree(t, in) })

	got, err := s.OrderByCode(ctx, in.Code)
	if err != nil {
		t.Fatalf("order by code: %v", err)
	}
	if got.UserID != in.UserID || got.WhatToPrint != in.WhatToPrint || got.Quantity != in.Quantity {
		t.Errorf("identity fields changed: %+v", got)
	}
	if got.Format != in.Format || got.SheetFormat != in.SheetFormat || got.CustomSize != "" ||
		got.Sides != in.Sides || got.Paper != in.Paper || got.Material != "" {
		t.Errorf("size fields changed: %+v", got)
	}
	if got.PrintColor != in.PrintColor || got.Lamination != in.Lamination ||
		got.CreaseCount != in.CreaseCount || got.CornerRounding {
		t.Errorf("finishing fields changed: %+v", got)
	}
	if !got.DeadlineAt.Valid || !got.DeadlineAt.Time.Equal(deadline) {
		t.Errorf("deadline = %+v; want %s", got.DeadlineAt, deadline)
	}
	if got.Contact != in.Contact || got.Notes != in.Notes {
		t.Errorf("contact fields changed: %+v", got)
	}
	if got.Status != models.StatusNew || got.NeedsOperator {
		t.Errorf("fresh order defaults: status=%s needs_operator=%v", got.Status, got.NeedsOperator)
	}

	stored, err := s.AttachmentsByOrder(ctx, got.ID)
	if err != nil {
		t.Fatalf("attachments: %v", err)
	}
	if len(stored) != 1 || stored[0].FileID != "file-rt" || stored[0].Kind != "document" {
		t.Errorf("attachments = %+v", stored)
	}
}

func TestOrderRoundTripDefaults(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	u, err := s.UpsertUser(ctx, models.User{TgUserID: time.Now().UnixNano()})
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}

	in := models.Order{UserID: u.ID, WhatToPrint: "Другое", Quantity: 5}
	if err := s.CreateOrder(ctx, &in, nil); err != nil {
		t.Fatalf("create order: %v", err)
	}
	t.Cleanup(func() { s.deleteOrderTree(t, in) })

	got, err := s.OrderByCode(ctx, in.Code)
	if err != nil {
		t.Fatalf("order by code: %v", err)
	}
	if got.DeadlineAt.Valid {
		t.Errorf("skipped deadline stored as %+v; want NULL", got.DeadlineAt)
	}
	if got.Status != models.StatusNew {
		t.Errorf("status = %s; want %s", got.Status, models.StatusNew)
	}

	moved, err := s.UpdateStatus(ctx, in.Code, models.StatusWaitingClient, true)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if moved.Status != models.StatusWaitingClient || !moved.NeedsOperator {
		t.Errorf("status update lost fields: %+v", moved)
	}
	reread, err := s.OrderByCode(ctx, in.Code)
	if err != nil {
		t.Fatalf("reread: %v", err)
	}
	if reread.Status != models.StatusWaitingClient || !reread.NeedsOperator {
		t.Errorf("status not persisted: %+v", reread)
	}
}
