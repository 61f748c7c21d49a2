package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vrecdsxcdv/printbot/internal/models"
)

const upsertUserQuery = `
INSERT INTO users (tg_user_id, username, first_name, last_name)
VALUES ($1, $2, $3, $4)
ON CONFLICT (tg_user_id) DO UPDATE SET
    username = EXCLUDED.username,
    first_name = EXCLUDED.first_name,
    last_name = EXCLUDED.last_name,
    last_seen_at = now()
RETURNING *`

// UpsertUser creates the user on first contact and refreshes the identity
// fields plus last_seen_at on every later one.
func (s *Store) UpsertUser(ctx context.Context, u models.User) (models.User, error) {
	var out models.User
	err := s.db.GetContext(ctx, &out, upsertUserQuery, u.TgUserID, u.Username, u.FirstName, u.LastName)
	if err != nil {
		return models.User{}, fmt.Errorf("upsert user tg_user_id=%d: %w", u.TgUserID, err)
	}
	return out, nil
}

// UserByID fetches a user by primary key.
func (s *Store) UserByID(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("user by id=%d: %w", id, err)
	}
	return u, nil
}
