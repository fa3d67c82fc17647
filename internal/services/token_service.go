package services

import (
	"errors"
	"fmt"
	"time"

	"userhub/internal/models"
	"userhub/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// TokenConfig is the process-wide signing policy.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

// UserClaims are carried by auth tokens.
type UserClaims struct {
	User models.Identity `json:"user"`
	jwt.RegisteredClaims
}

// CounterClaims are carried by the rolling analysis counter token.
type CounterClaims struct {
	Count int `json:"count"`
	jwt.RegisteredClaims
}

var errMissingClaims = errors.New("token is missing required claims")

// TokenService issues and verifies HS256 tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	logger *logrus.Logger
	now    func() time.Time
}

// NewTokenService creates a new TokenService.
func NewTokenService(cfg TokenConfig, logger *logrus.Logger) *TokenService {
	return &TokenService{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		logger: logger,
		now:    time.Now,
	}
}

// Issue signs an auth token for identity.
func (s *TokenService) Issue(identity models.Identity) (string, error) {
	return s.sign(&UserClaims{User: identity, RegisteredClaims: s.registered()})
}

// Verify returns the identity carried by token. Every failure is reported as
// the same Unauthenticated fault.
func (s *TokenService) Verify(token string) (models.Identity, error) {
	claims := &UserClaims{}
	if err := s.parse(token, claims); err != nil {
		return models.Identity{}, s.unauthenticated(err)
	}
	if claims.User.ID == 0 || claims.User.Username == "" {
		return models.Identity{}, s.unauthenticated(errMissingClaims)
	}
	return claims.User, nil
}

// IssueCounter signs a counter token holding count.
func (s *TokenService) IssueCounter(count int) (string, error) {
	return s.sign(&CounterClaims{Count: count, RegisteredClaims: s.registered()})
}

// VerifyCounter returns the count carried by token.
func (s *TokenService) VerifyCounter(token string) (int, error) {
	claims := &CounterClaims{}
	if err := s.parse(token, claims); err != nil {
		return 0, s.unauthenticated(err)
	}
	if claims.Count < 1 {
		return 0, s.unauthenticated(errMissingClaims)
	}
	return claims.Count, nil
}

func (s *TokenService) registered() jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
}

func (s *TokenService) sign(claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", apperror.Internal("failed to generate token", err)
	}
	return signed, nil
}

func (s *TokenService) parse(token string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return fmt.Errorf("token is invalid")
	}
	return nil
}

func (s *TokenService) unauthenticated(cause error) error {
	s.logger.WithError(cause).Debug("Token validation failed")
	return apperror.Wrap(apperror.CodeUnauthenticated, "invalid or expired token", cause)
}
