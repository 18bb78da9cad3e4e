package enclave

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// hkdfInfo domain-separates the ephemeral signing key from any other
// key material derived from the same seed.
const hkdfInfo = "tee-task-gateway/ephemeral-signing-key/v1"

// KeyPair is the process-wide ephemeral signing identity. It is
// created once at boot, read-only afterwards, and never persisted.
type KeyPair struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// NewKeyPair generates a fresh random keypair.
func NewKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ephemeral keypair: %w", err)
	}
	return &KeyPair{pub: pub, priv: priv}, nil
}

// DeriveKeyPair derives a keypair from a seed via HKDF-SHA256. The
// seed must be at least 32 bytes.
func DeriveKeyPair(seed []byte) (*KeyPair, error) {
	if len(seed) < 32 {
		return nil, errors.New("key seed must be at least 32 bytes")
	}

	keySeed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, seed, nil, []byte(hkdfInfo)), keySeed); err != nil {
		return nil, fmt.Errorf("deriving ephemeral key seed: %w", err)
	}

	priv := ed25519.NewKeyFromSeed(keySeed)
	return &KeyPair{pub: priv.Public().(ed25519.PublicKey), priv: priv}, nil
}

// PublicKey returns the ed25519 public key.
func (kp *KeyPair) PublicKey() ed25519.PublicKey { return kp.pub }

// PublicKeyHex returns the public key hex-encoded, as surfaced by the
// health check endpoint.
func (kp *KeyPair) PublicKeyHex() string { return hex.EncodeToString(kp.pub) }

// ReportData returns the 64-byte attestation report data binding this
// keypair: the raw public key in the first 32 bytes, the rest zero.
func (kp *KeyPair) ReportData() [64]byte {
	var report [64]byte
	copy(report[:ed25519.PublicKeySize], kp.pub)
	return report
}

func (kp *KeyPair) sign(payload []byte) []byte {
	return ed25519.Sign(kp.priv, payload)
}
