package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims are the operator access token claims.
type JWTClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ApprovalClaims are embedded in customer-facing approval link tokens. The
// token scopes a single customer's response to a single announcement.
type ApprovalClaims struct {
	AnnouncementID string `json:"ann"`
	CustomerID     string `json:"cus"`
	jwt.RegisteredClaims
}

// LoginRequest is the operator login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	User        *User  `json:"user"`
}
