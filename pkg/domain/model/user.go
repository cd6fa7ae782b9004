package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type UserStatus int

const (
	PendingVerification UserStatus = iota
	Active
)

type User struct {
	ID                uuid.UUID
	Email             string
	HashedPassword    string
	DisplayName       string
	Status            UserStatus
	IsAdmin           bool
	VerificationToken string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Session struct {
	Token     string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Identity is what the rest of the system knows about a signed-in user.
type Identity struct {
	UserID      uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	IsAdmin     bool      `json:"is_admin"`
}

type UserRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Find(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByVerificationToken(ctx context.Context, token string) (*User, error)
	SetAdmin(ctx context.Context, id uuid.UUID, admin bool) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	Find(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}

type PasswordManager interface {
	Hash(plainTextPassword string) (string, error)
	Check(hashedPassword, plainTextPassword string) (bool, error)
}
