package domain

import "time"

// UserStatus represents lifecycle states for a marketplace account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is a marketplace account (clipper or advertiser) that submits
// support tickets.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         RequesterRole
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
