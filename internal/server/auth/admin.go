// Package auth implements the admin gate: a stateless check of the shared
// admin token that every mutating operation must pass.
package auth

import "crypto/subtle"

// Gate compares caller-presented tokens against the configured secret.
type Gate struct {
	secret []byte
}

func NewGate(secret string) *Gate {
	return &Gate{secret: []byte(secret)}
}

// Authorize reports whether the presented token matches the configured
// secret. The comparison is constant-time. An empty configured secret
// disables all mutations rather than allowing them.
func (g *Gate) Authorize(presented string) bool {
	if len(g.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(g.secret, []byte(presented)) == 1
}
