package storage

import (
	"time"

	"github.com/google/uuid"
)

// User is the storage snapshot of an account. The session cache serializes
// the whole record, so the JSON shape here is the cache wire format; the HTTP
// layer maps users onto response types and never returns this struct.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Avatar       *string   `json:"avatar"`
	RefreshToken *string   `json:"refresh_token"`
	Confirmed    bool      `json:"confirmed"`
	CreatedAt    time.Time `json:"created_at"`
}

type Contact struct {
	ID        uuid.UUID  `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Phone     *string    `json:"phone"`
	BirthDate *time.Time `json:"birth_date"`
	Bio       *string    `json:"bio"`
	UserID    uuid.UUID  `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
}

// ContactFields carries the caller-mutable part of a contact. Create and
// Update both take the full set; id, owner and creation time stay immutable.
type ContactFields struct {
	FirstName string
	LastName  string
	Email     string
	Phone     *string
	BirthDate *time.Time
	Bio       *string
}

// ContactFilter selects at most one text filter. Priority is email, then
// first name, then last name; supplying several applies only the highest.
type ContactFilter struct {
	Email     string
	FirstName string
	LastName  string
}
