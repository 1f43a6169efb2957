package user

import (
	"crypto/subtle"
	"errors"
	"fmt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Admin is the single administrative principal. The credential is supplied
// externally at startup; only the argon2id hash of the password is retained.
type Admin struct {
	username string
	password *credentialHash
}

func NewAdmin(username string, rawPassword string) (*Admin, error) {
	if username == "" || rawPassword == "" {
		return nil, errors.New("admin username and password must both be provided")
	}

	password, err := hashPassword([]byte(rawPassword))
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}

	return &Admin{username: username, password: password}, nil
}

func (admin *Admin) Username() string { return admin.username }

// Authenticate succeeds only on an exact username match and a password whose
// hash (under the stored salt) matches the stored hash. Every failure mode
// collapses to ErrInvalidCredentials.
func (admin *Admin) Authenticate(username string, rawPassword string) error {
	usernameMatches := subtle.ConstantTimeCompare([]byte(username), []byte(admin.username)) == 1
	if !admin.password.matches([]byte(rawPassword)) || !usernameMatches {
		return ErrInvalidCredentials
	}

	return nil
}
