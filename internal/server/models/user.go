package models

import "time"

// User is a registered principal. IdentityKey is the normalized wallet
// address or email and is unique across users.
type User struct {
	ID          int64
	IdentityKey string
	CreatedAt   time.Time
}
