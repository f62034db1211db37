package models

import "time"

// Staff and client roles.
const (
	RoleAdmin        = "ADMIN"
	RoleOwner        = "OWNER"
	RoleReceptionist = "RECEPTIONIST"
	RoleTrainer      = "TRAINER"
	RoleClient       = "CLIENT"
)

// ValidRoles lists every role a user can hold.
var ValidRoles = []string{RoleAdmin, RoleOwner, RoleReceptionist, RoleTrainer, RoleClient}

// User represents a staff member (or a client with app access).
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // never serialized
	Name         string    `json:"name" db:"name"`
	Phone        *string   `json:"phone,omitempty" db:"phone"`
	Role         string    `json:"role" db:"role"`
	IsActive     bool      `json:"isActive" db:"is_active"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// Credentials for login request
type Credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	User        *User  `json:"user"`
}

// UserFilters narrows the staff listing.
type UserFilters struct {
	Search string
	Page   int
	Limit  int
}
