package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CredentialHasher verifies the seeded operator credential.
type CredentialHasher struct{}

func NewCredentialHasher() *CredentialHasher {
	return &CredentialHasher{}
}

func (h *CredentialHasher) Hash(credential string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to generate credential hash: %w", err)
	}
	return string(hash), nil
}

func (h *CredentialHasher) Verify(credential, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(credential)); err != nil {
		// Generic message regardless of cause; the caller must not be able
		// to tell a bad credential from a malformed hash.
		return fmt.Errorf("credential verification failed")
	}
	return nil
}
