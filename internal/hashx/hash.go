// Package hashx implements the salted password hash used by the identity
// core. A Hash is a plain string of the form salt||hex(sha256(salt||password)),
// so the salt needed for verification is carried by the value itself and
// equality with a stored hash can be checked by recomputation.
package hashx

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/rbp/auth/internal/common"
)

const saltAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Hash is a salted password hash. Its first bytes are the salt, the rest is
// the hex-encoded digest.
type Hash string

// Hasher produces and verifies hashes with a fixed salt length.
// It is safe for concurrent use.
type Hasher struct {
	saltLen int
	rand    io.Reader
}

type Option func(*Hasher)

// WithRand replaces the salt randomness source. Intended for deterministic
// tests.
func WithRand(r io.Reader) Option {
	return func(h *Hasher) { h.rand = r }
}

func New(saltLen int, opts ...Option) *Hasher {
	h := &Hasher{saltLen: saltLen, rand: rand.Reader}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Make returns the hash of plaintext under the given salt. An empty salt
// means "generate a random one"; a salt of any other length than the
// configured one is a caller error.
func (h *Hasher) Make(plaintext, salt string) (Hash, error) {
	if salt == "" {
		generated, err := h.randomSalt()
		if err != nil {
			return "", err
		}
		salt = generated
	}
	if len(salt) != h.saltLen {
		return "", fmt.Errorf("%w: %d", common.ErrInvalidSalt, len(salt))
	}
	sum := sha256.Sum256([]byte(salt + plaintext))
	return Hash(salt + hex.EncodeToString(sum[:])), nil
}

// Salt returns the salt prefix of v, or "" if v is too short to contain one.
func (h *Hasher) Salt(v Hash) string {
	if len(v) < h.saltLen {
		return ""
	}
	return string(v[:h.saltLen])
}

// Verify reports whether candidate hashes to stored under stored's own salt.
// The comparison is constant-time.
func (h *Hasher) Verify(candidate string, stored Hash) bool {
	salt := h.Salt(stored)
	if salt == "" {
		return false
	}
	recomputed, err := h.Make(candidate, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(recomputed), []byte(stored)) == 1
}

func (h *Hasher) randomSalt() (string, error) {
	b := make([]byte, h.saltLen)
	if _, err := io.ReadFull(h.rand, b); err != nil {
		return "", fmt.Errorf("reading salt randomness: %w", err)
	}
	for i := range b {
		b[i] = saltAlphabet[int(b[i])%len(saltAlphabet)]
	}
	return string(b), nil
}
