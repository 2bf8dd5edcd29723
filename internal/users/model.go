package users

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrEmailTaken is returned by Create when the unique email index rejects the insert.
var ErrEmailTaken = errors.New("email already registered")

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
