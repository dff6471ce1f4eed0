package models

import (
	"time"
)

// Presence is the heartbeat record kept per user while they are active.
type Presence struct {
	UserID   string                 `json:"user_id"`
	Online   bool                   `json:"online"`
	LastSeen time.Time              `json:"last_seen"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewPresence creates an online presence record stamped with the current time.
func NewPresence(userID string, metadata map[string]interface{}) *Presence {
	return &Presence{
		UserID:   userID,
		Online:   true,
		LastSeen: time.Now(),
		Metadata: metadata,
	}
}
