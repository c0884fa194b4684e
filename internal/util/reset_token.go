package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// resetTokenBytes gives 256 bits of entropy per token.
const resetTokenBytes = 32

// ResetTokenManager issues single-use password reset tokens. Only the SHA-256
// digest of a token is ever stored; the raw value goes to the customer.
type ResetTokenManager struct{}

func NewResetTokenManager() *ResetTokenManager {
	return &ResetTokenManager{}
}

func (ResetTokenManager) Generate() (raw string, hash string, err error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	return raw, HashResetToken(raw), nil
}

func (ResetTokenManager) HashForLookup(raw string) string {
	return HashResetToken(raw)
}

func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
