package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentPin stores a user's salted/hashed withdrawal PIN. The row is
// created lazily on first set. IsDefault stays true until the user replaces
// the factory PIN; withdrawals are blocked while it is set.
type PaymentPin struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	PinHash   string    `json:"-"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
