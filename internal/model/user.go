package model

import "time"

// User represents an account as stored in the `users` table. Email is kept
// lower-cased. Staff users may manage the catalog.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	Email        string    // users.email
	FirstName    string    // users.first_name
	LastName     string    // users.last_name
	PasswordHash string    // users.password_hash
	IsStaff      bool      // users.is_staff
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
}

// Token kinds stored in the auth_tokens table.
const (
	TokenKindRefresh = "refresh"
	TokenKindSession = "session"
)
