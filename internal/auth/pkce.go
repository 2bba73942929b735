package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// generateVerifier produces a 21-char base64url PKCE verifier (spec.md §4.2 step 1).
func generateVerifier() (string, error) {
	return randomBase64URL(21)
}

// generateState produces a 21-char base64url PKCE state (spec.md §4.2 step 1).
func generateState() (string, error) {
	return randomBase64URL(21)
}

// challengeFromVerifier computes the 64-hex-char SHA-256 challenge of verifier
// (spec.md §4.2 step 1).
func challengeFromVerifier(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return hex.EncodeToString(sum[:])
}

func randomBase64URL(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	enc := base64.RawURLEncoding.EncodeToString(buf)
	if len(enc) > n {
		enc = enc[:n]
	}
	for len(enc) < n {
		enc += "a"
	}
	return enc, nil
}
