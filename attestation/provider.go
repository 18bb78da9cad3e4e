package attestation

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"

	tdx_client "github.com/google/go-tdx-guest/client"
)

// Provider kind strings accepted by FromString.
const (
	KindDCAP   = "dcap"
	KindRemote = "remote"
	KindDummy  = "dummy"
)

var (
	// ErrUnavailable indicates the hardware quote interface could not
	// be reached.
	ErrUnavailable = errors.New("attestation interface unavailable")

	// ErrMalformedResponse indicates the quote interface answered with
	// a response of the wrong shape.
	ErrMalformedResponse = errors.New("malformed attestation response")
)

// Document is an opaque attestation document as issued by the quote
// interface. It has no lifecycle beyond the call that produced it.
type Document []byte

// Hex returns the document hex-encoded for transport.
func (d Document) Hex() string { return hex.EncodeToString(d) }

// ID returns a short stable identifier for the document, passed to the
// child task as its final positional argument.
func (d Document) ID() string {
	sum := sha256.Sum256(d)
	return hex.EncodeToString(sum[:])
}

// Provider obtains an attestation document over the given 64-byte
// report data. Implementations must treat every call as an isolated
// transaction with the hardware.
type Provider interface {
	Attest(reportData [64]byte) (Document, error)
}

// FromString selects a provider implementation by kind. addr is only
// used by the remote provider.
func FromString(kind, addr string) (Provider, error) {
	switch kind {
	case KindDCAP:
		return &DCAPProvider{}, nil
	case KindRemote:
		if addr == "" {
			return nil, errors.New("remote attestation provider requires an address")
		}
		return &RemoteProvider{Address: addr}, nil
	case KindDummy:
		return &DummyProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown attestation provider %q", kind)
	}
}

// DCAPProvider obtains TDX quotes from the local hardware. It prefers
// the configfs-tsm report interface and falls back to the legacy
// /dev/tdx_guest device, opening and closing it per call.
type DCAPProvider struct{}

// Attest implements Provider.
func (DCAPProvider) Attest(reportData [64]byte) (Document, error) {
	qp := &tdx_client.LinuxConfigFsQuoteProvider{}
	if qp.IsSupported() == nil {
		quote, err := qp.GetRawQuote(reportData)
		if err != nil {
			return nil, fmt.Errorf("%w: configfs quote: %v", ErrUnavailable, err)
		}
		return quote, nil
	}

	qd, err := tdx_client.OpenDevice()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer qd.Close()

	quote, err := tdx_client.GetRawQuote(qd, reportData)
	if err != nil {
		return nil, fmt.Errorf("%w: device quote: %v", ErrUnavailable, err)
	}
	return quote, nil
}

// RemoteProvider obtains quotes from an HTTP quote provider, for
// deployments where the hardware interface is brokered by a sidecar.
type RemoteProvider struct {
	Address string
}

// Attest implements Provider.
func (p *RemoteProvider) Attest(reportData [64]byte) (Document, error) {
	url := fmt.Sprintf("%s/attest/%s", p.Address, hex.EncodeToString(reportData[:]))
	resp, err := http.DefaultClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: calling remote quote provider: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: remote quote provider returned status %d: %s", ErrMalformedResponse, resp.StatusCode, string(body))
	}

	rawQuote, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading quote from response: %v", ErrMalformedResponse, err)
	}
	if len(rawQuote) == 0 {
		return nil, fmt.Errorf("%w: empty quote", ErrMalformedResponse)
	}
	return rawQuote, nil
}

// DummyProvider issues a static document embedding the report data.
// For tests and development only.
type DummyProvider struct{}

// Attest implements Provider.
func (DummyProvider) Attest(reportData [64]byte) (Document, error) {
	return []byte(fmt.Sprintf("dummy attestation over %x", reportData)), nil
}
