package testutil

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"sync"
	"testing"

	"github.com/dtroode/knowledgebase-server/internal/keysource"
)

// KeyPair holds PEM encoded key material (PKCS#8 private, PKIX public).
type KeyPair struct {
	Private []byte
	Public  []byte
}

var (
	rsaOnce sync.Once
	rsaPair KeyPair
	rsaErr  error
)

// RSAKeyPair returns a 2048 bit RSA pair shared by the whole test binary.
func RSAKeyPair(t testing.TB) KeyPair {
	t.Helper()
	rsaOnce.Do(func() {
		rsaPair.Private, rsaPair.Public, rsaErr = keysource.GenerateRSA(2048)
	})
	if rsaErr != nil {
		t.Fatalf("generate rsa key: %v", rsaErr)
	}
	return rsaPair
}

// ECKeyPair returns a fresh ECDSA pair on curve.
func ECKeyPair(t testing.TB, curve elliptic.Curve) KeyPair {
	t.Helper()
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		t.Fatalf("generate ec key: %v", err)
	}
	priv, pub, err := keysource.EncodePEM(key, key.Public())
	if err != nil {
		t.Fatalf("encode ec key: %v", err)
	}
	return KeyPair{Private: priv, Public: pub}
}

// Ed25519KeyPair returns a fresh Ed25519 pair.
func Ed25519KeyPair(t testing.TB) KeyPair {
	t.Helper()
	pub, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	priv, pubPEM, err := keysource.EncodePEM(key, pub)
	if err != nil {
		t.Fatalf("encode ed25519 key: %v", err)
	}
	return KeyPair{Private: priv, Public: pubPEM}
}
