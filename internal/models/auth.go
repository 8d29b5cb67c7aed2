package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JoinFamilyRequest creates a family or joins an existing one by code.
type JoinFamilyRequest struct {
	JoinCode   string `json:"join_code" validate:"omitempty,max=16"`
	FamilyName string `json:"family_name" validate:"omitempty,max=120"`
	MemberName string `json:"member_name" validate:"required,max=120"`
	Email      string `json:"email" validate:"omitempty,email"`
	Color      string `json:"color" validate:"omitempty,max=32"`
}

// JoinFamilyResponse returns the session token and the joined family.
type JoinFamilyResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	Family    FamilyInfo `json:"family"`
	User      User       `json:"user"`
}

// JWTClaims represents the JWT payload for session tokens.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	FamilyID string `json:"family_id"`
	jwt.RegisteredClaims
}
