package services_test

import (
	"testing"
	"time"

	"userhub/internal/logging"
	"userhub/internal/models"
	"userhub/internal/services"
	"userhub/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test_jwt_secret"

func newTokenService(ttl time.Duration) *services.TokenService {
	return services.NewTokenService(services.TokenConfig{Secret: testJWTSecret, TTL: ttl}, logging.Discard())
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	tokens := newTokenService(time.Hour)
	identity := models.Identity{ID: 42, Username: "alice1"}

	token, err := tokens.Issue(identity)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	got, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, identity, got)

	// The payload is readable with the shared secret and carries iat/exp.
	claims := &services.UserClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "alice1", claims.User.Username)
	require.NotNil(t, claims.ExpiresAt)
	require.NotNil(t, claims.IssuedAt)
	assert.WithinDuration(t, claims.IssuedAt.Add(time.Hour), claims.ExpiresAt.Time, time.Second)
}

func TestTokenService_VerifyFailsClosed(t *testing.T) {
	tokens := newTokenService(time.Hour)
	valid, err := tokens.Issue(models.Identity{ID: 1, Username: "alice1"})
	require.NoError(t, err)

	forged, err := services.NewTokenService(services.TokenConfig{Secret: "other", TTL: time.Hour}, logging.Discard()).
		Issue(models.Identity{ID: 1, Username: "alice1"})
	require.NoError(t, err)

	expired, err := newTokenService(-time.Minute).Issue(models.Identity{ID: 1, Username: "alice1"})
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user": map[string]any{"id": 1, "username": "alice1"},
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user": map[string]any{"id": 1, "username": "alice1"},
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	counter, err := tokens.IssueCounter(3)
	require.NoError(t, err)

	cases := map[string]string{
		"forged":       forged,
		"expired":      expired,
		"alg none":     noneAlg,
		"no expiry":    noExpiry,
		"garbage":      "invalid.token.string",
		"empty":        "",
		"tampered":     valid[:len(valid)-2] + "xx",
		"counter only": counter,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			identity, err := tokens.Verify(token)
			require.Error(t, err)
			assert.True(t, apperror.Is(err, apperror.CodeUnauthenticated))
			assert.Equal(t, "invalid or expired token", apperror.From(err).Message)
			assert.Zero(t, identity)
		})
	}
}

func TestTokenService_Counter(t *testing.T) {
	tokens := newTokenService(time.Hour)

	first, err := tokens.IssueCounter(1)
	require.NoError(t, err)
	count, err := tokens.VerifyCounter(first)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	next, err := tokens.IssueCounter(count + 1)
	require.NoError(t, err)
	count, err = tokens.VerifyCounter(next)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	authToken, err := tokens.Issue(models.Identity{ID: 1, Username: "alice1"})
	require.NoError(t, err)
	_, err = tokens.VerifyCounter(authToken)
	assert.True(t, apperror.Is(err, apperror.CodeUnauthenticated))

	_, err = tokens.VerifyCounter("nope")
	assert.True(t, apperror.Is(err, apperror.CodeUnauthenticated))
}
