package models

import "time"

// Task is a to-do item owned by an identity key. CompletedAt is set if and
// only if Completed is true.
type Task struct {
	ID               int64      `json:"id"`
	OwnerIdentityKey string     `json:"owner"`
	Text             string     `json:"text"`
	Completed        bool       `json:"completed"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}
