package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user. Role, when set,
// must match the stored role.
type LoginRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required"`
	Role     UserRole `json:"role" validate:"omitempty,oneof=student teacher admin"`
}

// SignupRequest registers a new account.
type SignupRequest struct {
	Name       string   `json:"name" validate:"required,min=2,max=120"`
	Email      string   `json:"email" validate:"required,email"`
	Password   string   `json:"password" validate:"required,min=6"`
	Role       UserRole `json:"role" validate:"required,oneof=student teacher admin"`
	Department string   `json:"department" validate:"required"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expires_in"`
	User      UserInfo  `json:"user"`
	IssuedAt  time.Time `json:"issued_at"`
}

// ForgotPasswordRequest payload for initiating reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes reset flow.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Role       UserRole `json:"role"`
	Department string   `json:"department"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID     int64    `json:"user_id"`
	Role       UserRole `json:"role"`
	Department string   `json:"department"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	jwt.RegisteredClaims
}

// Viewer resolves the claims into the identity used by access decisions.
func (c *JWTClaims) Viewer() Viewer {
	if c == nil {
		return Viewer{}
	}
	return Viewer{ID: c.UserID, Role: c.Role, Department: c.Department, Name: c.Name}
}
