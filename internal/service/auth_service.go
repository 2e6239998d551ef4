package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/slot-booking/internal/models"
	"github.com/noah-isme/slot-booking/pkg/config"
	appErrors "github.com/noah-isme/slot-booking/pkg/errors"
)

// SessionStore persists the session table.
type SessionStore interface {
	Get(ctx context.Context, clientID int64) (*models.Session, error)
	Put(ctx context.Context, session models.Session) error
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]models.Session
}

// NewMemorySessionStore constructs an empty in-memory session table.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[int64]models.Session)}
}

// Get returns the session for clientID or ErrSessionNotFound.
func (m *MemorySessionStore) Get(_ context.Context, clientID int64) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[clientID]
	if !ok {
		return nil, appErrors.ErrSessionNotFound
	}
	return &session, nil
}

// Put overwrites the session of its client.
func (m *MemorySessionStore) Put(_ context.Context, session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ClientID] = session
	return nil
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Mode   string
	Secret string
	TTL    time.Duration
	Issuer string
}

// AuthService logs users in and authorizes subsequent requests.
type AuthService struct {
	users  map[string]models.User
	store  SessionStore
	logger *zap.Logger
	config AuthConfig
	now    func() time.Time
}

// NewAuthService constructs an AuthService. When usernames repeat, the first
// user wins.
func NewAuthService(users []models.User, store SessionStore, logger *zap.Logger, cfg AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = NewMemorySessionStore()
	}
	if cfg.Mode == "" {
		cfg.Mode = config.SessionModeAddress
	}
	index := make(map[string]models.User, len(users))
	for _, u := range users {
		if _, exists := index[u.Username]; exists {
			logger.Warn("duplicate username ignored", zap.String("username", u.Username), zap.Int64("user_id", u.ID))
			continue
		}
		index[u.Username] = u
	}
	return &AuthService{
		users:  index,
		store:  store,
		logger: logger,
		config: cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Login checks the credentials and records a session bound to the caller's
// address. A new login replaces any earlier session of the same user.
func (s *AuthService) Login(ctx context.Context, username, password, callerAddress string) (*models.LoginResult, error) {
	user, ok := s.users[username]
	if !ok || !passwordMatches(user.Password, password) {
		return nil, appErrors.ErrInvalidCredentials
	}

	issuedAt := s.now()
	var expiresAt time.Time
	if s.config.TTL > 0 {
		expiresAt = issuedAt.Add(s.config.TTL)
	}
	tokenID := uuid.NewString()

	token, err := s.generateToken(user, tokenID, issuedAt, expiresAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to create session token")
	}

	session := models.Session{
		ClientID:  user.ID,
		Address:   CallerHost(callerAddress),
		TokenID:   tokenID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}
	if err := s.store.Put(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to persist session")
	}

	s.logger.Info("client logged in", zap.Int64("client_id", user.ID), zap.String("address", session.Address))
	return &models.LoginResult{ClientID: user.ID, Token: token, ExpiresAt: expiresAt}, nil
}

// Authorize verifies that the caller may act as clientID. In address mode the
// caller's host must match the host recorded at login. In token mode the
// session token must be valid and belong to the latest login.
func (s *AuthService) Authorize(ctx context.Context, clientID int64, callerAddress, token string) error {
	session, err := s.store.Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, appErrors.ErrSessionNotFound) {
			return appErrors.ErrAccessDenied
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to load session")
	}

	if s.config.Mode == config.SessionModeToken {
		return s.authorizeToken(session, token)
	}

	if session.Address != CallerHost(callerAddress) {
		return appErrors.ErrAccessDenied
	}
	return nil
}

func (s *AuthService) authorizeToken(session *models.Session, token string) error {
	if token == "" {
		return appErrors.Clone(appErrors.ErrAccessDenied, "access denied: missing session token")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(models.SubjectFor(session.ClientID)),
		jwt.WithTimeFunc(s.now),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	if s.config.TTL > 0 {
		opts = append(opts, jwt.WithExpirationRequired())
	}

	claims := &models.SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return appErrors.Wrap(err, appErrors.ErrAccessDenied.Code, "access denied: invalid session token")
	}
	if claims.ID != session.TokenID {
		return appErrors.Clone(appErrors.ErrAccessDenied, "access denied: session token revoked")
	}
	return nil
}

func (s *AuthService) generateToken(user models.User, tokenID string, issuedAt, expiresAt time.Time) (string, error) {
	claims := &models.SessionClaims{
		ClientID: user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Issuer:    s.config.Issuer,
			Subject:   models.SubjectFor(user.ID),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	if !expiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// CallerHost strips the port from a network address. Every request arrives on
// a fresh connection with an ephemeral port, so only the host identifies the
// caller.
func CallerHost(address string) string {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return address
	}
	return host
}

func passwordMatches(stored, supplied string) bool {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

func isBcryptHash(value string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}
