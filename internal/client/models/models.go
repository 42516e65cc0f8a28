// Package models defines the client-side view of users, tasks and exports.
package models

import "time"

// User is the server's record for the signed-in identity.
type User struct {
	ID          int64
	IdentityKey string
	CreatedAt   time.Time
}

// Task is one to-do item as last fetched from the server.
type Task struct {
	ID          int64
	Text        string
	Completed   bool
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Export describes an uploaded task snapshot.
type Export struct {
	URL       string
	ObjectKey string
	Count     int
	ExpiresAt time.Time
}

// WalletProof carries a signed server challenge for wallet registration.
type WalletProof struct {
	ChallengeToken string
	Signature      string
}

// Pending returns the tasks that are not completed yet, preserving order.
func Pending(tasks []*Task) []*Task {
	out := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out
}
