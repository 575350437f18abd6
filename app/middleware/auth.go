package appMiddleware

import (
	"os"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserEmailKey contextKey = "userEmail"
const UserRoleKey contextKey = "userRole"

// TokenTypeRefresh marks refresh tokens so they cannot be replayed as access
// tokens (and vice versa).
const TokenTypeRefresh = "refresh"

// Claims carried by both access and refresh tokens. Type is empty on access
// tokens and TokenTypeRefresh on refresh tokens.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	Type  string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// JwtSecretKey signs both token kinds (HS256). Loaded once at startup;
// the fallback exists only so tests can run without an environment.
var JwtSecretKey = []byte("dev-only-insecure-secret")

func init() {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		JwtSecretKey = []byte(secret)
	}
}
