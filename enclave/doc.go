/*
Package enclave implements the gateway's cryptographic identity and the
signed intent envelope that binds task responses to it.

# Ephemeral Keypair

The gateway holds a single ed25519 keypair created at boot and shared
read-only by every request. It is never written to disk; restarting the
process yields a new identity, and the attestation document produced
alongside each response is what lets a verifier trust the current
public key. For reproducible deployments the keypair can instead be
derived from an operator-supplied seed via HKDF.

# Intent Envelope

Every response payload is wrapped in an IntentMessage carrying a scope
tag and a millisecond timestamp, then serialized with RFC 8949 Core
Deterministic CBOR and signed. Envelope structs use the cbor "toarray"
option, so field order on the wire is fixed by the schema rather than
by any map iteration order: an independent verifier reconstructs the
identical byte sequence from {scope, timestamp_ms, data} and checks the
signature against it.

The scope tag exists to prevent cross-protocol replay. A signature
produced for one scope never verifies under another, even when the
payload bytes coincide, because the scope is part of the signed bytes.
*/
package enclave
