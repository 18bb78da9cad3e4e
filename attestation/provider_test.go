package attestation

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReportData() [64]byte {
	var rd [64]byte
	copy(rd[:], []byte("public key bytes"))
	return rd
}

func TestFromString(t *testing.T) {
	p, err := FromString(KindDummy, "")
	require.NoError(t, err)
	assert.IsType(t, &DummyProvider{}, p)

	p, err = FromString(KindDCAP, "")
	require.NoError(t, err)
	assert.IsType(t, &DCAPProvider{}, p)

	p, err = FromString(KindRemote, "http://127.0.0.1:9999")
	require.NoError(t, err)
	assert.IsType(t, &RemoteProvider{}, p)

	_, err = FromString(KindRemote, "")
	require.Error(t, err)

	_, err = FromString("nitro", "")
	require.Error(t, err)
}

func TestDummyProviderBindsReportData(t *testing.T) {
	rd := testReportData()

	doc, err := DummyProvider{}.Attest(rd)
	require.NoError(t, err)
	assert.Contains(t, string(doc), hex.EncodeToString(rd[:]))
}

func TestDocumentHexAndID(t *testing.T) {
	doc := Document("attestation bytes")

	assert.Equal(t, hex.EncodeToString([]byte("attestation bytes")), doc.Hex())
	assert.Len(t, doc.ID(), 64)
	assert.Equal(t, doc.ID(), doc.ID())
	assert.NotEqual(t, doc.ID(), Document("other bytes").ID())
}

func TestRemoteProvider(t *testing.T) {
	rd := testReportData()
	quote := []byte("raw quote bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fmt.Sprintf("/attest/%s", hex.EncodeToString(rd[:])), r.URL.Path)
		w.Write(quote)
	}))
	defer srv.Close()

	doc, err := (&RemoteProvider{Address: srv.URL}).Attest(rd)
	require.NoError(t, err)
	assert.Equal(t, Document(quote), doc)
}

func TestRemoteProviderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no quote for you", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := (&RemoteProvider{Address: srv.URL}).Attest(testReportData())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestRemoteProviderEmptyQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := (&RemoteProvider{Address: srv.URL}).Attest(testReportData())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestRemoteProviderUnreachable(t *testing.T) {
	_, err := (&RemoteProvider{Address: "http://127.0.0.1:1"}).Attest(testReportData())
	assert.ErrorIs(t, err, ErrUnavailable)
}
