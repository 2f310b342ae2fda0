package auth

import "crypto/subtle"

// AdminGate checks the shared admin secret.
type AdminGate struct {
	secret []byte
}

// NewAdminGate creates a gate for the configured secret. An empty secret
// rejects every attempt.
func NewAdminGate(secret string) *AdminGate {
	return &AdminGate{secret: []byte(secret)}
}

// Verify compares the candidate with the secret in constant time.
func (g *AdminGate) Verify(candidate string) bool {
	if len(g.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), g.secret) == 1
}
