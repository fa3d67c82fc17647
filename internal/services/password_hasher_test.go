package services_test

import (
	"testing"

	"userhub/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMD5Hasher(t *testing.T) {
	h := services.MD5Hasher{}

	digest, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.Len(t, digest, 32)
	assert.Regexp(t, `^[0-9a-f]{32}$`, digest)

	again, _ := h.Hash("secret1")
	assert.Equal(t, digest, again, "digest must be deterministic")

	known, _ := h.Hash("")
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", known)

	assert.True(t, h.Verify("secret1", digest))
	assert.False(t, h.Verify("secret2", digest))
}

func TestBcryptHasher(t *testing.T) {
	h := services.BcryptHasher{Cost: bcrypt.MinCost}

	first, err := h.Hash("secret1")
	require.NoError(t, err)
	second, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "bcrypt digests are salted")

	assert.True(t, h.Verify("secret1", first))
	assert.True(t, h.Verify("secret1", second))
	assert.False(t, h.Verify("wrong", first))
	assert.False(t, h.Verify("secret1", "not-a-bcrypt-digest"))
}

func TestNewPasswordHasher(t *testing.T) {
	h, err := services.NewPasswordHasher("md5")
	require.NoError(t, err)
	assert.IsType(t, services.MD5Hasher{}, h)

	h, err = services.NewPasswordHasher("bcrypt")
	require.NoError(t, err)
	assert.IsType(t, services.BcryptHasher{}, h)

	_, err = services.NewPasswordHasher("rot13")
	assert.Error(t, err)
}
