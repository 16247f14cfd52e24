package user

import (
	"time"

	"github.com/google/uuid"
)

// User is a hotel-side operator account used for the admin API. Agents never
// authenticate as users; they carry their own opaque tokens.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         string
	HotelID      *uuid.UUID
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const (
	RoleAdmin     = "admin"
	RoleReception = "reception"
)
