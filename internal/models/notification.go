package models

import "time"

// NotificationKind classifies user notifications.
type NotificationKind string

const (
	NotificationSlotReserved     NotificationKind = "SLOT_RESERVED"
	NotificationSlotCancelled    NotificationKind = "SLOT_CANCELLED"
	NotificationSlotStateUpdated NotificationKind = "SLOT_STATE_UPDATED"
	NotificationNewSchedule      NotificationKind = "NEW_SCHEDULE"
)

// Notification is a persisted per-user message.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Kind      NotificationKind `db:"kind" json:"kind"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Read      bool             `db:"read" json:"read"`
	TargetURL *string          `db:"target_url" json:"target_url,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter scopes notification listings.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
