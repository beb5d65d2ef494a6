package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePEM(t *testing.T, typ string, der []byte) string {
	t.Helper()
	return string(pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der}))
}

func pkcs8(t *testing.T, key crypto.Signer) string {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return encodePEM(t, "PRIVATE KEY", der)
}

func pkix(t *testing.T, pub crypto.PublicKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	return encodePEM(t, "PUBLIC KEY", der)
}

func TestParseKeys_Formats(t *testing.T) {
	ec, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	rs, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	ecDER, err := x509.MarshalECPrivateKey(ec)
	require.NoError(t, err)

	privates := map[string]string{
		"pkcs8 ecdsa": pkcs8(t, ec),
		"sec1 ecdsa":  encodePEM(t, "EC PRIVATE KEY", ecDER),
		"pkcs8 rsa":   pkcs8(t, rs),
		"pkcs1 rsa":   encodePEM(t, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(rs)),
	}
	for name, s := range privates {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePrivateKey(s)
			assert.NoError(t, err)
		})
	}

	publics := map[string]string{
		"pkix ecdsa": pkix(t, ec.Public()),
		"pkix rsa":   pkix(t, rs.Public()),
		"pkcs1 rsa":  encodePEM(t, "RSA PUBLIC KEY", x509.MarshalPKCS1PublicKey(&rs.PublicKey)),
	}
	for name, s := range publics {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePublicKey(s)
			assert.NoError(t, err)
		})
	}
}

func TestParseKeys_SingleLineEnvAndFile(t *testing.T) {
	ec, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	oneLine := strings.ReplaceAll(strings.TrimSpace(pkix(t, ec.Public())), "\n", `\n`)
	pub, err := ParsePublicKey(oneLine)
	require.NoError(t, err)
	assert.True(t, ec.PublicKey.Equal(pub))

	path := filepath.Join(t.TempDir(), "jwt.key")
	require.NoError(t, os.WriteFile(path, []byte(pkcs8(t, ec)), 0o600))
	priv, err := ParsePrivateKey(path)
	require.NoError(t, err)
	assert.True(t, ec.PublicKey.Equal(priv.Public()))
}

func TestParseKeys_Rejections(t *testing.T) {
	p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	p256, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	testCases := []struct {
		name  string
		parse func(string) error
		input string
	}{
		{"empty", privateErr, "   "},
		{"not pem", privateErr, "-----BEGIN garbage"},
		{"missing file", privateErr, filepath.Join(t.TempDir(), "nope.pem")},
		{"public key as private", privateErr, pkix(t, p256.Public())},
		{"private key as public", publicErr, pkcs8(t, p256)},
		{"unsupported curve private", privateErr, pkcs8(t, p384)},
		{"unsupported curve public", publicErr, pkix(t, p384.Public())},
		{"corrupt der", publicErr, encodePEM(t, "PUBLIC KEY", []byte("not der"))},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.parse(tc.input))
		})
	}
}

func privateErr(s string) error { _, err := ParsePrivateKey(s); return err }
func publicErr(s string) error  { _, err := ParsePublicKey(s); return err }
