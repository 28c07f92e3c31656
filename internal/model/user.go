package model

import "time"

// Newsroom roles carried in the access token's "role" claim.
const (
	RoleEditor   = "EDITOR"
	RoleProducer = "PRODUCER"
)

// User is a newsroom account as stored in the `users` table.  Handlers
// never serialise it directly because of PasswordHash.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hashed password.
//	Role         – EDITOR or PRODUCER.
//	StationID    – station selected at sign-up; shows and stories default to it.
//	IsActive     – whether the account may sign in.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	StationID    uint64    // users.station_id
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the raw token is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
