package models

import (
	"time"
)

// RateLimit is the outcome of a rate-limit check for one identifier.
type RateLimit struct {
	Allowed   bool          `json:"allowed"`
	Remaining int           `json:"remaining"`
	ResetIn   time.Duration `json:"reset_in"`
}
