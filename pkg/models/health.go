package models

import (
	"time"
)

// Health is the result of a store round-trip probe.
type Health struct {
	Connected bool          `json:"connected"`
	Latency   time.Duration `json:"latency,omitempty"`
}
