// Package crypto provides Ed25519 keypair generation, transaction signing,
// and address derivation for the chain.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

// KeyPair holds an Ed25519 keypair.
type KeyPair struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// Generate creates a new keypair from the OS CSPRNG.
func Generate() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &KeyPair{Private: priv, Public: pub}, nil
}

// Address returns the base58 encoding of the raw public key.
func (k *KeyPair) Address() string {
	return base58.Encode(k.Public)
}

// PublicKeyHex returns the raw 32-byte public key, hex-encoded.
func (k *KeyPair) PublicKeyHex() string {
	return hex.EncodeToString(k.Public)
}

// signingMessage builds the canonical message signed for a transaction.
func signingMessage(from, to string, amount, nonce, fee uint64) []byte {
	return []byte(fmt.Sprintf("%s:%s:%d:%d:%d", from, to, amount, nonce, fee))
}

// Sign produces a hex-encoded Ed25519 signature over the canonical
// transaction message.
func (k *KeyPair) Sign(from, to string, amount, nonce, fee uint64) string {
	sig := ed25519.Sign(k.Private, signingMessage(from, to, amount, nonce, fee))
	return hex.EncodeToString(sig)
}

// Verify checks a hex-encoded signature against a hex-encoded public key and
// the canonical transaction fields. It never panics: any decoding or length
// error simply yields false.
func Verify(publicKeyHex, from, to string, amount, nonce, fee uint64, signatureHex string) bool {
	pubBytes, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(pubBytes) != ed25519.PublicKeySize {
		return false
	}
	sigBytes, err := hex.DecodeString(signatureHex)
	if err != nil || len(sigBytes) != ed25519.SignatureSize {
		return false
	}
	msg := signingMessage(from, to, amount, nonce, fee)
	return ed25519.Verify(ed25519.PublicKey(pubBytes), msg, sigBytes)
}

// AddressFromPublicKeyHex derives the base58 address from a hex-encoded
// public key. Returns an error if the key is malformed.
func AddressFromPublicKeyHex(publicKeyHex string) (string, error) {
	pubBytes, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return "", fmt.Errorf("decode public key: %w", err)
	}
	if len(pubBytes) != ed25519.PublicKeySize {
		return "", fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pubBytes))
	}
	return base58.Encode(pubBytes), nil
}
