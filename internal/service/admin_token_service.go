package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	appErrors "github.com/noah-isme/slot-booking/pkg/errors"
)

// AdminAudience is the audience claim of admin bearer tokens. Booking session
// tokens never carry it, so they cannot be replayed against the admin API.
const AdminAudience = "booking-admin"

// AdminTokenService issues and checks bearer tokens for admin write endpoints.
type AdminTokenService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewAdminTokenService returns nil when secret is empty, which leaves the
// admin API read-only.
func NewAdminTokenService(secret, issuer string) *AdminTokenService {
	if secret == "" {
		return nil
	}
	return &AdminTokenService{
		secret: []byte(secret),
		issuer: issuer,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue signs a token for subject valid for ttl.
func (s *AdminTokenService) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "admin token subject is required")
	}
	if ttl <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "admin token ttl must be positive")
	}
	issuedAt := s.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{AdminAudience},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to sign admin token")
	}
	return signed, nil
}

// ValidateToken returns the subject of a valid admin token.
func (s *AdminTokenService) ValidateToken(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(AdminAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", appErrors.Clone(appErrors.ErrUnauthorized, "admin token expired")
		}
		return "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, fmt.Sprintf("invalid admin token: %v", err))
	}
	if claims.Subject == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "admin token has no subject")
	}
	return claims.Subject, nil
}
