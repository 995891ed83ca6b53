package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
)

// APIKeyValidator validates presented API keys against the configured
// set. Keys are compared through SHA-256 digests so the comparison is
// constant-time regardless of key length.
type APIKeyValidator struct {
	digests [][sha256.Size]byte
}

// NewAPIKeyValidator creates a validator from the configured keys.
func NewAPIKeyValidator(keys []string) *APIKeyValidator {
	v := &APIKeyValidator{
		digests: make([][sha256.Size]byte, 0, len(keys)),
	}
	for _, key := range keys {
		v.digests = append(v.digests, sha256.Sum256([]byte(key)))
	}
	return v
}

// Validate checks whether the presented key matches one of the
// configured keys.
func (v *APIKeyValidator) Validate(key string) error {
	if key == "" {
		return fmt.Errorf("missing API key")
	}

	presented := sha256.Sum256([]byte(key))
	// Compare against every configured key so timing does not reveal
	// which position matched.
	matched := 0
	for i := range v.digests {
		matched |= subtle.ConstantTimeCompare(v.digests[i][:], presented[:])
	}
	if matched != 1 {
		return fmt.Errorf("invalid API key")
	}
	return nil
}
