// Package token holds the stateless credential generators. All of them take
// no process-wide state beyond the randomness source, so tests can exercise
// them with a deterministic reader.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"

	"github.com/google/uuid"
)

// NewVerificationCode generates a fixed-width numeric confirmation code of
// the given number of digits, read from src. The low bound excludes leading
// zeros so the code is always exactly `digits` characters.
func NewVerificationCode(src io.Reader, digits int) (string, error) {
	min := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits-1)), nil)
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(src, new(big.Int).Sub(max, min))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return n.Add(n, min).String(), nil
}

// NewSecret generates the single-use credential issued after a token is
// confirmed. UUIDv4, unique per verification record.
func NewSecret() string {
	return uuid.NewString()
}

// NewRefreshToken generates a cryptographically random 64-character hex token.
func NewRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
