package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// Signed refresh tokens are longer than bcrypt's 72-byte input window and
// tokens of one user share their leading bytes, so bcrypt is fed the
// SHA-256 digest of the token instead of the token itself.
func refreshDigest(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// HashRefreshToken returns the bcrypt hash stored for a refresh token
func (h *Hasher) HashRefreshToken(token string) (string, error) {
	return h.Hash(refreshDigest(token))
}

// VerifyRefreshToken reports whether token matches a hash made by HashRefreshToken
func (h *Hasher) VerifyRefreshToken(token, hash string) (bool, error) {
	return h.Verify(refreshDigest(token), hash)
}
