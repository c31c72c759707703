// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"
)

// Role governs what a user may do with posts and categories.
type Role string

const (
	RoleUser   Role = "user"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleEditor, RoleAdmin:
		return true
	default:
		return false
	}
}

// User represents an account on the blog.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	FirstName      string    `gorm:"not null;default:''" json:"first_name"`
	LastName       string    `gorm:"not null;default:''" json:"last_name"`
	HashedPassword string    `gorm:"not null" json:"-"`
	Role           Role      `gorm:"type:varchar(16);not null;default:user" json:"role"`
	IsActive       bool      `gorm:"not null" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
