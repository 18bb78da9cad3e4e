/*
Package attestation produces hardware attestation documents binding the
enclave's ephemeral public key.

Attestation is infrequent (once per gateway request), so providers open
a fresh handle to the quote interface on every call and close it before
returning; there is no pooling and no application-level locking around
the hardware. There are also no retries: a request whose attestation
call fails is failed outright, because a response cannot honestly be
presented as "from this enclave" without a fresh binding.

Three providers are available, selected by flag at boot:

  - dcap:   local TDX quote via configfs-tsm, falling back to the
    /dev/tdx_guest device
  - remote: an HTTP quote provider (GET {addr}/attest/{hex report data})
  - dummy:  a static document for tests and development
*/
package attestation
