package models

import "time"

// User represents a row in the users table without its password hash.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserWithSecret carries the password hash. Only the credential lookup
// and user creation paths handle it.
type UserWithSecret struct {
	User
	PasswordHash string `json:"-"` // never serialize
}

// UserUpdate is a partial profile change. Nil fields are left untouched.
type UserUpdate struct {
	Username *string
	Email    *string
}

// IsEmpty reports whether the update changes nothing.
func (u UserUpdate) IsEmpty() bool {
	return u.Username == nil && u.Email == nil
}
