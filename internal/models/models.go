// Package models defines the persisted entities of the print-shop bot.
package models

import (
	"database/sql"
	"time"
)

// OrderStatus is the operator-facing lifecycle state of an order.
type OrderStatus string

const (
	StatusNew           OrderStatus = "NEW"
	StatusInProgress    OrderStatus = "IN_PROGRESS"
	StatusWaitingClient OrderStatus = "WAITING_CLIENT"
	StatusReady         OrderStatus = "READY"
	StatusCancelled     OrderStatus = "CANCELLED"
)

// StatusLabels maps statuses to their fixed human-readable labels.
var StatusLabels = map[OrderStatus]string{
	StatusNew:           "🆕 Новый",
	StatusInProgress:    "🛠 В работе",
	StatusWaitingClient: "✏️ Ждём правки",
	StatusReady:         "✅ Готов",
	StatusCancelled:     "❌ Отменён",
}

// Label returns the human-readable label for the status, falling back to the
// raw value for unknown statuses.
func (s OrderStatus) Label() string {
	if l, ok := StatusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Valid reports whether the status belongs to the known vocabulary.
func (s OrderStatus) Valid() bool {
	_, ok := StatusLabels[s]
	return ok
}

// User is a Telegram user, created lazily on first interaction.
type User struct {
	ID         int64     `db:"id"`
	TgUserID   int64     `db:"tg_user_id"`
	Username   string    `db:"username"`
	FirstName  string    `db:"first_name"`
	LastName   string    `db:"last_name"`
	CreatedAt  time.Time `db:"created_at"`
	LastSeenAt time.Time `db:"last_seen_at"`
}

// DisplayName renders the user for operator-facing cards.
func (u User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	switch {
	case u.Username != "" && name != "":
		return "@" + u.Username + " (" + name + ")"
	case u.Username != "":
		return "@" + u.Username
	case name != "":
		return name
	default:
		return "—"
	}
}

// Order is the committed, immutable-identity order record. Only status and
// needs_operator mutate after creation.
type Order struct {
	ID             int64        `db:"id"`
	Code           string       `db:"code"`
	UserID         int64        `db:"user_id"`
	WhatToPrint    string       `db:"what_to_print"`
	Quantity       int          `db:"quantity"`
	Format         string       `db:"format"`
	SheetFormat    string       `db:"sheet_format"`
	CustomSize     string       `db:"custom_size"`
	Sides          string       `db:"sides"`
	Paper          string       `db:"paper"`
	Material       string       `db:"material"`
	PrintColor     string       `db:"print_color"`
	Lamination     string       `db:"lamination"`
	CreaseCount    int          `db:"crease_count"`
	CornerRounding bool         `db:"corner_rounding"`
	DeadlineAt     sql.NullTime `db:"deadline_at"`
	Contact        string       `db:"contact"`
	Notes          string       `db:"notes"`
	Status         OrderStatus  `db:"status"`
	NeedsOperator  bool         `db:"needs_operator"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at"`
}

// Attachment is a customer-supplied artwork file owned by exactly one order.
type Attachment struct {
	ID           int64     `db:"id"`
	OrderID      int64     `db:"order_id"`
	FileID       string    `db:"file_id"`
	FileUniqueID string    `db:"file_unique_id"`
	OriginalName string    `db:"original_name"`
	MIME         string    `db:"mime"`
	SizeBytes    int64     `db:"size_bytes"`
	TgMessageID  int       `db:"tg_message_id"`
	FromChatID   int64     `db:"from_chat_id"`
	Kind         string    `db:"kind"` // document | photo
	CreatedAt    time.Time `db:"created_at"`
}
