package models

import "time"

// Credential maps a username to its login secret. PasswordHash is stored as
// "hex(digest):salt"; the clear-text password is never persisted.
type Credential struct {
	Username     string    `bson:"_id" json:"username"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email,omitempty" json:"email,omitempty"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}
