package enclave

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
)

// Scope tags the semantic type of a signed payload. Two message kinds
// must never share a scope: the scope is part of the signed bytes, so
// a distinct tag guarantees their canonical encodings cannot collide
// with different meanings.
type Scope uint8

const (
	// ScopeTaskExecution covers signed task execution responses.
	ScopeTaskExecution Scope = 0
)

// ErrInvalidSignature indicates the envelope's signature does not
// verify against the canonical encoding of its message.
var ErrInvalidSignature = errors.New("envelope signature verification failed")

// IntentMessage wraps a payload with its scope and timestamp. The
// "toarray" option fixes the CBOR field order to the schema order:
// [scope, timestamp_ms, data].
type IntentMessage[T any] struct {
	_ struct{} `cbor:",toarray"`

	Scope       Scope  `json:"intent"`
	TimestampMS uint64 `json:"timestamp_ms"`
	Data        T      `json:"data"`
}

// SignedEnvelope pairs an intent message with the hex-encoded ed25519
// signature over its canonical CBOR encoding.
type SignedEnvelope[T any] struct {
	Message   IntentMessage[T] `json:"response"`
	Signature string           `json:"signature"`
}

// SigningBytes returns the canonical byte sequence a signature for msg
// must cover. Verifiers call this (or an equivalent deterministic CBOR
// encoder in another language) to re-derive the exact signed bytes.
func SigningBytes[T any](msg IntentMessage[T]) ([]byte, error) {
	return Marshal(msg)
}

// Sign wraps payload in an IntentMessage and signs its canonical
// encoding with the enclave's ephemeral key.
func Sign[T any](kp *KeyPair, payload T, scope Scope, timestampMS uint64) (*SignedEnvelope[T], error) {
	msg := IntentMessage[T]{
		Scope:       scope,
		TimestampMS: timestampMS,
		Data:        payload,
	}

	signingPayload, err := SigningBytes(msg)
	if err != nil {
		return nil, fmt.Errorf("serializing intent message: %w", err)
	}

	return &SignedEnvelope[T]{
		Message:   msg,
		Signature: hex.EncodeToString(kp.sign(signingPayload)),
	}, nil
}

// Verify re-derives the canonical bytes of the envelope's message and
// checks the signature against the given public key.
func Verify[T any](pub ed25519.PublicKey, envelope *SignedEnvelope[T]) error {
	signingPayload, err := SigningBytes(envelope.Message)
	if err != nil {
		return fmt.Errorf("serializing intent message: %w", err)
	}

	sig, err := hex.DecodeString(envelope.Signature)
	if err != nil {
		return fmt.Errorf("decoding signature: %w", err)
	}

	if !ed25519.Verify(pub, signingPayload, sig) {
		return ErrInvalidSignature
	}
	return nil
}
