package models

import (
	"time"
)

// Notification is a single entry in a user's feed. The same shape is
// published to live listeners on the user's channel.
type Notification struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Read      bool                   `json:"read"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewNotification creates an unread notification stamped with the current time.
func NewNotification(id, typ, title, message string) *Notification {
	return &Notification{
		ID:        id,
		Type:      typ,
		Title:     title,
		Message:   message,
		Read:      false,
		CreatedAt: time.Now(),
	}
}

// NewerThan reports whether n was created after other. Used to keep feeds
// ordered most-recent-first.
func (n *Notification) NewerThan(other *Notification) bool {
	if n.CreatedAt.Equal(other.CreatedAt) {
		return n.ID > other.ID
	}
	return n.CreatedAt.After(other.CreatedAt)
}
