// Package admin guards moderation operations behind a single process-wide key.
package admin

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/geoquest/internal/geoquest"
)

// Gate checks presented admin keys. The zero Gate rejects everything.
type Gate struct {
	key  []byte
	hash []byte
}

// NewGate configures the gate from a plain key or a bcrypt hash of it. When
// both are set the hash is checked first.
func NewGate(key, hash string) *Gate {
	g := &Gate{}
	if key != "" {
		g.key = []byte(key)
	}
	if hash != "" {
		g.hash = []byte(hash)
	}
	return g
}

// Configured reports whether any key is set.
func (g *Gate) Configured() bool {
	return g != nil && (len(g.key) > 0 || len(g.hash) > 0)
}

// Check returns geoquest.ErrForbidden unless presented matches. Callers run it
// before touching any data.
func (g *Gate) Check(presented string) error {
	if !g.Configured() || presented == "" {
		return geoquest.ErrForbidden
	}
	if len(g.hash) > 0 && bcrypt.CompareHashAndPassword(g.hash, []byte(presented)) == nil {
		return nil
	}
	if len(g.key) > 0 && subtle.ConstantTimeCompare(g.key, []byte(presented)) == 1 {
		return nil
	}
	return geoquest.ErrForbidden
}
