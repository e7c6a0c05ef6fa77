package entity

import "time"

// User represents an account row in the `users` table. Contacts reference it
// through contacts.owner_id.
type User struct {
	ID                  string     `db:"id"`
	Name                string     `db:"name"`
	Email               string     `db:"email"`
	PasswordHash        string     `db:"password_hash"`
	IsVerified          bool       `db:"is_verified"`
	VerifyToken         *string    `db:"verify_token"`
	LoginFailedAttempts int        `db:"login_failed_attempts"`
	LockedUntil         *time.Time `db:"locked_until"`
	LastLoginAt         *time.Time `db:"last_login_at"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

// Locked reports whether u is inside a lockout window at now.
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// LoginView is returned to the client after a successful login.
type LoginView struct {
	Token string `json:"jwtToken"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
