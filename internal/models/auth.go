package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Role         UserRole `json:"role"`
	DepartmentID string   `json:"department_id,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID       string   `json:"user_id"`
	Username     string   `json:"username"`
	Role         UserRole `json:"role"`
	DepartmentID string   `json:"department_id,omitempty"`
	jwt.RegisteredClaims
}
