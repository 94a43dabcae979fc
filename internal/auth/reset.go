package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ResetTokenTTL is how long a password-reset link stays valid.
const ResetTokenTTL = 15 * time.Minute

// NewResetToken generates a password-reset token pair: the raw token that
// goes into the email link and the SHA-256 form that gets persisted. Only
// the hashed form ever touches the database.
func NewResetToken() (raw string, hashed string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	return raw, HashResetToken(raw), nil
}

// HashResetToken maps a raw reset token to its stored form.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
