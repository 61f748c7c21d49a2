package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/vrecdsxcdv/printbot/internal/logger"
	"github.com/vrecdsxcdv/printbot/internal/models"
)

// Order codes look like 250907-0001: date prefix plus a per-day counter.
// The counter is allocated inside the insert transaction; a concurrent
// commit racing for the same number trips the unique index on code and the
// whole transaction is retried with a fresh counter.
const codeAllocRetries = 3

const insertOrderQuery = `
INSERT INTO orders (
    code, user_id, what_to_print, quantity,
    format, sheet_format, custom_size, sides,
    paper, material, print_color,
    lamination, crease_count, corner_rounding,
    deadline_at, contact, notes, status
) VALUES (
    :code, :user_id, :what_to_print, :quantity,
    :format, :sheet_format, :custom_size, :sides,
    :paper, :material, :print_color,
    :lamination, :crease_count, :corner_rounding,
    :deadline_at, :contact, :notes, :status
)
RETURNING id, created_at, updated_at`

// CreateOrder persists the order and its attachments atomically, filling in
// Code, ID and the timestamps on the passed order.
func (s *Store) CreateOrder(ctx context.Context, o *models.Order, atts []models.Attachment) error {
	prefix := time.Now().Format("060102")

	var lastErr error
	for attempt := 1; attempt <= codeAllocRetries; attempt++ {
		err := s.tryCreateOrder(ctx, o, atts, prefix)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isUniqueViolation(err) {
			break
		}
		logger.DB.Warn("order code collision, retrying",
			slog.String("event", "order.create"),
			slog.String("prefix", prefix),
			slog.Int("attempt", attempt),
		)
	}
	return fmt.Errorf("create order: %w", lastErr)
}

func (s *Store) tryCreateOrder(ctx context.Context, o *models.Order, atts []models.Attachment, prefix string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	code, err := nextCode(ctx, tx, prefix)
	if err != nil {
		return err
	}
	o.Code = code
	if o.Status == "" {
		o.Status = models.StatusNew
	}

	rows, err := tx.NamedQuery(insertOrderQuery, o)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", code, err)
	}
	if rows.Next() {
		if err := rows.Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan inserted order %s: %w", code, err)
		}
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("insert order %s: %w", code, err)
	}

	for i := range atts {
		atts[i].OrderID = o.ID
		if err := insertAttachment(ctx, tx, &atts[i]); err != nil {
			return fmt.Errorf("insert attachment for %s: %w", code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order %s: %w", code, err)
	}
	return nil
}

type txQuerier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// nextCode finds the highest counter already issued for the day prefix and
// returns the next code. The row lock keeps sequential commits from racing;
// true races fall through to the unique index.
func nextCode(ctx context.Context, tx txQuerier, prefix string) (string, error) {
	var last string
	err := tx.GetContext(ctx, &last,
		`SELECT code FROM orders WHERE code LIKE $1 ORDER BY code DESC LIMIT 1 FOR UPDATE`,
		prefix+"-%")
	seq := 1
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// first order of the day
	case err != nil:
		return "", fmt.Errorf("last code for %s: %w", prefix, err)
	default:
		if i := strings.LastIndexByte(last, '-'); i >= 0 {
			if n, convErr := strconv.Atoi(last[i+1:]); convErr == nil {
				seq = n + 1
			}
		}
	}
	return fmt.Sprintf("%s-%04d", prefix, seq), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// OrderByCode fetches one order by its public code.
func (s *Store) OrderByCode(ctx context.Context, code string) (models.Order, error) {
	var o models.Order
	err := s.db.GetContext(ctx, &o, `SELECT * FROM orders WHERE code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, ErrNotFound
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("order by code=%s: %w", code, err)
	}
	return o, nil
}

// OrdersByUser returns one page of the user's orders, newest first, plus
// the total number of orders they have.
func (s *Store) OrdersByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Order, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total,
		`SELECT count(*) FROM orders WHERE user_id = $1`, userID); err != nil {
		return nil, 0, fmt.Errorf("count orders user_id=%d: %w", userID, err)
	}

	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		`SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("orders user_id=%d: %w", userID, err)
	}
	return orders, total, nil
}

// LatestOrderByUser returns the user's most recent order.
func (s *Store) LatestOrderByUser(ctx context.Context, userID int64) (models.Order, error) {
	var o models.Order
	err := s.db.GetContext(ctx, &o,
		`SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, ErrNotFound
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("latest order user_id=%d: %w", userID, err)
	}
	return o, nil
}

// UpdateStatus moves the order to the new status and records whether it now
// waits on the operator, in a single statement so the two never diverge.
func (s *Store) UpdateStatus(ctx context.Context, code string, status models.OrderStatus, needsOperator bool) (models.Order, error) {
	var o models.Order
	err := s.db.GetContext(ctx, &o,
		`UPDATE orders SET status = $2, needs_operator = $3, updated_at = now() WHERE code = $1 RETURNING *`,
		code, status, needsOperator)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, ErrNotFound
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("update status code=%s: %w", code, err)
	}
	return o, nil
}

// SetNeedsOperator flips the operator-attention flag on an order.
func (s *Store) SetNeedsOperator(ctx context.Context, code string, needs bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET needs_operator = $2, updated_at = now() WHERE code = $1`,
		code, needs)
	if err != nil {
		return fmt.Errorf("set needs_operator code=%s: %w", code, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// StaleNew returns NEW orders nobody has touched since the cutoff, for the
// background reminder sweep.
func (s *Store) StaleNew(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		`SELECT * FROM orders WHERE status = $1 AND updated_at < $2 ORDER BY created_at`,
		models.StatusNew, cutoff)
	if err != nil {
		return nil, fmt.Errorf("stale new orders: %w", err)
	}
	return orders, nil
}
