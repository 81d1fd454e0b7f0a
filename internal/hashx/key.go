package hashx

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// RegistrationKey derives a pseudo-random registration key from the email
// and a fresh random value. The one-way hash keeps the key unguessable, and
// the random component makes collisions vanishingly unlikely.
func RegistrationKey(email string) string {
	sum := sha256.Sum256([]byte(email + uuid.NewString()))
	return hex.EncodeToString(sum[:])
}
