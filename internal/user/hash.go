package user

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters used for the admin credential. The password is hashed
// once at startup and compared on every login attempt, so the low-memory
// profile is sufficient.
const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 128
	argonSaltLen        = 64
)

// credentialHash couples an argon2id digest with the random salt it was
// derived under. The plaintext password is never retained.
type credentialHash struct {
	digest []byte
	salt   []byte
}

func hashPassword(password []byte) (*credentialHash, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	return &credentialHash{
		digest: argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen),
		salt:   salt,
	}, nil
}

// matches re-derives the digest for the candidate password under the stored
// salt and compares it against the stored digest.
func (hash *credentialHash) matches(password []byte) bool {
	candidate := argon2.IDKey(password, hash.salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return bytes.Equal(hash.digest, candidate)
}
