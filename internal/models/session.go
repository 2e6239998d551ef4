package models

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session binds a logged-in client to the address it logged in from and the
// token it was issued.
type Session struct {
	ClientID  int64     `json:"client_id"`
	Address   string    `json:"address"`
	TokenID   string    `json:"token_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionClaims is the JWT payload handed to clients on login.
type SessionClaims struct {
	ClientID int64  `json:"client_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	ClientID  int64
	Token     string
	ExpiresAt time.Time
}

// SubjectFor renders a client id as a JWT subject.
func SubjectFor(clientID int64) string {
	return strconv.FormatInt(clientID, 10)
}
