package auth

import "time"

// CodeInvalidToken marks tokens that fail verification.
const CodeInvalidToken = "invalid_token"

// Config drives token verification.
type Config struct {
	Secret string
	// Issuer, when set, must match the iss claim.
	Issuer   string
	TokenTTL time.Duration
}

// Claims are extracted from the JWT token.
type Claims struct {
	Subject   string
	Issuer    string
	ExpiresAt time.Time
}
