package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vrecdsxcdv/printbot/internal/models"
)

const insertAttachmentQuery = `
INSERT INTO attachments (
    order_id, file_id, file_unique_id, original_name,
    mime, size_bytes, tg_message_id, from_chat_id, kind
) VALUES (
    :order_id, :file_id, :file_unique_id, :original_name,
    :mime, :size_bytes, :tg_message_id, :from_chat_id, :kind
)
RETURNING id, created_at`

func insertAttachment(ctx context.Context, tx *sqlx.Tx, a *models.Attachment) error {
	rows, err := tx.NamedQuery(insertAttachmentQuery, a)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		return rows.Scan(&a.ID, &a.CreatedAt)
	}
	return rows.Err()
}

// AttachmentsByOrder lists the artwork files of an order in upload order.
func (s *Store) AttachmentsByOrder(ctx context.Context, orderID int64) ([]models.Attachment, error) {
	var atts []models.Attachment
	err := s.db.SelectContext(ctx, &atts,
		`SELECT * FROM attachments WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("attachments order_id=%d: %w", orderID, err)
	}
	return atts, nil
}

// CountAttachments returns how many files an order carries.
func (s *Store) CountAttachments(ctx context.Context, orderID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT count(*) FROM attachments WHERE order_id = $1`, orderID)
	if err != nil {
		return 0, fmt.Errorf("count attachments order_id=%d: %w", orderID, err)
	}
	return n, nil
}
