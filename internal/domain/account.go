// Package domain contains core domain types for the emotion classifier app.
package domain

import (
	"time"
)

// Gender is the self-reported gender captured at registration.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// ValidGender reports whether g is one of the accepted values.
func ValidGender(g Gender) bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Account represents a registered user. Accounts are immutable once
// created; there are no update or delete operations.
//
// PasswordHash is intentionally serialized: the admin user-data view
// exposes the full row, hash included.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Age          int       `json:"age"`
	Gender       Gender    `json:"gender"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"created_at"`
}
