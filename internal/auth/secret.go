// Package auth holds the API-key secret scheme shared by the HTTP middleware
// and the key-minting CLI. Secrets are never stored; only an argon2id hash
// and its salt are.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/argon2"

	"github.com/conjugo/conjugo/internal/domain/models"
)

const (
	// SecretLength is the total secret length including the "cjg_" marker.
	// The first models.KeyPrefixLength characters double as the lookup prefix.
	SecretLength = 36
	secretMarker = "cjg_"
	saltLength   = 16

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// MintSecret produces a fresh API-key secret and its salted hash. The secret
// is shown to the caller exactly once; the hash and salt are what gets stored.
func MintSecret() (secret string, hash, salt []byte, err error) {
	body, err := gonanoid.New(SecretLength - len(secretMarker))
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	secret = secretMarker + body

	salt = make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", nil, nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return secret, HashSecret(secret, salt), salt, nil
}

// HashSecret derives the storable hash of a secret under the given salt.
func HashSecret(secret string, salt []byte) []byte {
	return argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// Verify hashes the presented secret under the stored salt and compares it to
// the stored hash in constant time.
func Verify(secret string, salt, hash []byte) bool {
	computed := HashSecret(secret, salt)
	return subtle.ConstantTimeCompare(computed, hash) == 1
}

// Prefix returns the lookup prefix of a presented secret, or "" if the secret
// is too short to carry one.
func Prefix(secret string) string {
	if len(secret) < models.KeyPrefixLength {
		return ""
	}
	return secret[:models.KeyPrefixLength]
}
