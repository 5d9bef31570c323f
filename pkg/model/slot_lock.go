package model

import "time"

// SlotLock is an advisory lock serializing booking writes for one
// (provider, date) calendar key. Inserting it into a collection with a unique
// _id makes concurrent conflict-check-then-write sequences mutually exclusive.
type SlotLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
