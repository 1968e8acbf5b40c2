// Package model defines the data structures used throughout the application.
package model

import "time"

// Role decides what a profile may do. Only creators can open the dashboard
// and upload programs.
type Role string

const (
	RoleCreator Role = "creator"
	RoleUser    Role = "user"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleCreator || r == RoleUser
}

// User is a profile record together with its identity columns.
//
// The profile half (Email, DisplayName, Role, CreatedAt) is what pages show.
// The identity half (PasswordHash, GitHubID) never leaves the server, which
// is why both carry `json:"-"`.
//
// GitHubID is zero for accounts created with email and password. Accounts
// that signed in through GitHub at least once carry GitHub's numeric user id.
type User struct {
	ID           string    `json:"id"          db:"id"`
	Email        string    `json:"email"       db:"email"`
	DisplayName  string    `json:"displayName" db:"display_name"`
	Role         Role      `json:"role"        db:"role"`
	PasswordHash string    `json:"-"           db:"password_hash"`
	GitHubID     int64     `json:"-"           db:"github_id"`
	CreatedAt    time.Time `json:"createdAt"   db:"created_at"`
}

// IsCreator reports whether the profile may use the creator dashboard.
func (u *User) IsCreator() bool {
	return u != nil && u.Role == RoleCreator
}

// Label is the name shown in "Signed in as ..." and in the dashboard header.
// It falls back to the email when no display name was set.
func (u *User) Label() string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
