package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidKey is returned when a key is missing, not PEM, or of an unsupported type.
var ErrInvalidKey = errors.New("invalid key")

// readPEM decodes the first PEM block of s. s is either inline PEM, possibly with literal \n
// sequences as produced by single-line env vars, or a path to a PEM file.
func readPEM(s string) (*pem.Block, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	var raw []byte
	if strings.HasPrefix(s, "-----BEGIN") {
		raw = []byte(strings.ReplaceAll(s, `\n`, "\n"))
	} else {
		b, err := os.ReadFile(s)
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		raw = b
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, ErrInvalidKey
	}
	return block, nil
}

// ParsePrivateKey parses the operator token signing key (RSA, or ECDSA P-256) from PEM or a PEM file.
func ParsePrivateKey(s string) (crypto.Signer, error) {
	block, err := readPEM(s)
	if err != nil {
		return nil, err
	}
	var key any
	switch block.Type {
	case "PRIVATE KEY":
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, err
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, ErrInvalidKey
	}
	if _, err := signingMethod(signer.Public()); err != nil {
		return nil, err
	}
	return signer, nil
}

// ParsePublicKey parses the operator token verification key. A certificate is accepted and its
// public key used.
func ParsePublicKey(s string) (crypto.PublicKey, error) {
	block, err := readPEM(s)
	if err != nil {
		return nil, err
	}
	var pub crypto.PublicKey
	switch block.Type {
	case "PUBLIC KEY":
		pub, err = x509.ParsePKIXPublicKey(block.Bytes)
	case "RSA PUBLIC KEY":
		pub, err = x509.ParsePKCS1PublicKey(block.Bytes)
	case "CERTIFICATE":
		var cert *x509.Certificate
		if cert, err = x509.ParseCertificate(block.Bytes); err == nil {
			pub = cert.PublicKey
		}
	default:
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, err
	}
	if _, err := signingMethod(pub); err != nil {
		return nil, err
	}
	return pub, nil
}

// signingMethod picks RS256 for RSA keys and ES256 for P-256 keys.
func signingMethod(pub crypto.PublicKey) (jwt.SigningMethod, error) {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return jwt.SigningMethodRS256, nil
	case *ecdsa.PublicKey:
		if k.Curve == elliptic.P256() {
			return jwt.SigningMethodES256, nil
		}
	}
	return nil, ErrInvalidKey
}
