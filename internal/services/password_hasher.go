package services

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"userhub/internal/config"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher turns plaintext passwords into stored digests and checks
// candidates against them.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// NewPasswordHasher returns the hasher selected by name.
func NewPasswordHasher(name string) (PasswordHasher, error) {
	switch name {
	case config.HasherMD5:
		return MD5Hasher{}, nil
	case config.HasherBcrypt:
		return BcryptHasher{Cost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", name)
	}
}

// MD5Hasher produces an unsalted, deterministic 32-char hex digest.
// Kept for compatibility with existing stored digests; prefer BcryptHasher.
type MD5Hasher struct{}

func (MD5Hasher) Hash(plain string) (string, error) {
	sum := md5.Sum([]byte(plain))
	return hex.EncodeToString(sum[:]), nil
}

func (h MD5Hasher) Verify(plain, digest string) bool {
	candidate, _ := h.Hash(plain)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(digest)) == 1
}

// BcryptHasher produces salted bcrypt digests.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func (BcryptHasher) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
