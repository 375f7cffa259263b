package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultWorkFactor is the bcrypt cost used when none is configured.
const DefaultWorkFactor = 12

// Hasher derives and verifies salted password digests with a tunable
// bcrypt work factor.
type Hasher struct {
	cost int
}

// NewHasher constructs a Hasher. Costs outside the bcrypt range fall back
// to DefaultWorkFactor.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultWorkFactor
	}
	return &Hasher{cost: cost}
}

// Hash derives a salted digest from the plaintext. Two calls with the same
// plaintext yield different digests.
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches the digest. A malformed digest
// verifies as false; the caller never learns why the comparison failed.
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
