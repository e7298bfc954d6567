package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-otp-api/internal/config"
	"github.com/go-otp-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestProvider generates a fresh RSA key pair, writes them to temp files,
// and returns a *Provider. The temp directory is cleaned up automatically
// by t.TempDir() when the test completes.
func newTestProvider(t *testing.T, expiry time.Duration) *Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	cfg := &config.Config{
		ProofPrivateKeyPath: privPath,
		ProofPublicKeyPath:  pubPath,
		ProofTokenExpiry:    expiry,
	}
	p, err := NewProvider(cfg)
	require.NoError(t, err)
	return p
}

func TestSignVerify_RoundTrip(t *testing.T) {
	p := newTestProvider(t, 15*time.Minute)

	signed, err := p.Sign("a@b.com", domain.ChannelEmail, "vid-1")
	require.NoError(t, err)

	claims, err := p.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", claims.Recipient)
	assert.Equal(t, domain.ChannelEmail, claims.Channel)
	assert.Equal(t, "vid-1", claims.VerificationID)
}

func TestVerify_ExpiredToken(t *testing.T) {
	p := newTestProvider(t, -time.Minute)

	signed, err := p.Sign("a@b.com", domain.ChannelEmail, "vid-1")
	require.NoError(t, err)

	_, err = p.Verify(signed)
	assert.Error(t, err)
}

func TestVerify_WrongKeyPair(t *testing.T) {
	p1 := newTestProvider(t, 15*time.Minute)
	p2 := newTestProvider(t, 15*time.Minute)

	signed, err := p1.Sign("a@b.com", domain.ChannelSMS, "vid-1")
	require.NoError(t, err)

	_, err = p2.Verify(signed)
	assert.Error(t, err)
}

func TestNewProvider_MissingKeys(t *testing.T) {
	cfg := &config.Config{
		ProofPrivateKeyPath: "/nonexistent/private.pem",
		ProofPublicKeyPath:  "/nonexistent/public.pem",
	}
	_, err := NewProvider(cfg)
	assert.Error(t, err)
}
