package security

import (
	"crypto/rand"
	"encoding/base64"
)

// SecretPrefix marks project secrets so they are recognizable in leaked-credential scans.
const SecretPrefix = "otps_"

// NewProjectSecret returns a random pipeline secret. Only its bcrypt hash is stored.
func NewProjectSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return SecretPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}
