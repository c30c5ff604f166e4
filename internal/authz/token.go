// Package authz gates the external "deflake" command behind an optional
// shared secret, so resetting a flaky test's burn-in counters isn't left
// open to anyone who can invoke the driver.
package authz

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost  = 10
	bcryptLimit = 72
)

// ErrTokenEmpty indicates HashToken was called with an empty token.
var ErrTokenEmpty = errors.New("deflake token must not be empty")

// HashToken produces a bcrypt hash of a shared deflake token for storage in
// configuration. Tokens longer than bcrypt's 72-byte limit are pre-hashed
// with SHA-256 so arbitrarily long tokens behave consistently.
func HashToken(token string) (string, error) {
	if token == "" {
		return "", ErrTokenEmpty
	}

	hash, err := bcrypt.GenerateFromPassword(prepareInput(token), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash deflake token: %w", err)
	}

	return string(hash), nil
}

// Authorized reports whether token matches the configured hash. When
// configuredHash is empty, deflake is unauthenticated and Authorized always
// returns true — gating is opt-in.
func Authorized(configuredHash, token string) bool {
	if configuredHash == "" {
		return true
	}

	if token == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(configuredHash), prepareInput(token)) == nil
}

func prepareInput(token string) []byte {
	if len(token) <= bcryptLimit {
		return []byte(token)
	}

	sum := sha256.Sum256([]byte(token))

	return sum[:]
}
