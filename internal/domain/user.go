package domain

import (
	"context"
	"time"
)

// Role codes.
const (
	RoleAttendee  = "attendee"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

// ValidRole reports whether code is a known role.
func ValidRole(code string) bool {
	return code == RoleAttendee || code == RoleOrganizer || code == RoleAdmin
}

// User represents a registered user
// swagger:model User
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser returns a new User with the given fields. ID is typically set by the repository on create.
func NewUser(email, name, role string, createdAt, updatedAt time.Time) *User {
	return &User{
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// Identity is the authenticated caller as resolved by the identity store.
type Identity struct {
	UserID string
	Role   string
}

// CanManage reports whether the identity may act on other users' registrations.
func (i Identity) CanManage() bool {
	return i.Role == RoleOrganizer || i.Role == RoleAdmin
}

// PasswordHasher handles salt generation, hashing, and verification.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email, role string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the caller's identity.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, p PaginationParams) ([]*User, int, error)
}

// UserService exposes the user directory to administrators.
type UserService interface {
	ListUsers(ctx context.Context, actor Identity, p PaginationParams) ([]*User, int, error)
}

// AuthService is the identity store boundary: sign-up and credential verification.
type AuthService interface {
	SignUp(ctx context.Context, email, password, name, role string) (*User, error)
	Login(ctx context.Context, email, password string) (string, error)
}
