package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the only supported JWT claims shape for operator sessions.
// Devices never carry JWTs; they authenticate with their own bearer token.
type Claims struct {
	jwt.RegisteredClaims

	UserID string `json:"user_id"`
	Role   string `json:"role"`
}
