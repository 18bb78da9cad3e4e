package httpserver

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attestedrun/tee-task-gateway/attestation"
	"github.com/attestedrun/tee-task-gateway/enclave"
	"github.com/attestedrun/tee-task-gateway/metrics"
	"github.com/attestedrun/tee-task-gateway/secrets"
	"github.com/attestedrun/tee-task-gateway/taskrunner"
)

const fakeRuntime = `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "v18.19.0"
  exit 0
fi
exec /bin/sh "$@"
`

// resultEcho reports its arguments on stderr and emits a minimal
// delimited result.
const resultEcho = `
echo "ARGS:$*" >&2
echo "===TASK_RESULT_START==="
echo "{\"status\": \"completed\", \"first\": \"$1\", \"var\": \"$GW_TEST_VAR\"}"
echo "===TASK_RESULT_END==="
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testGateway struct {
	srv     *httptest.Server
	keypair *enclave.KeyPair
	bundle  string
}

func newTestGateway(t *testing.T, entryPoint string, mutate func(*HandlerConfig)) *testGateway {
	t.Helper()
	logger := testLogger()

	bundle := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "package.json"), []byte(`{"name":"fixture"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "index.js"), []byte(entryPoint), 0o755))
	runtime := filepath.Join(bundle, "fake-node")
	require.NoError(t, os.WriteFile(runtime, []byte(fakeRuntime), 0o755))

	keypair, err := enclave.NewKeyPair()
	require.NoError(t, err)

	t.Setenv("GW_TEST_VAR", "from-env")
	envBuilder, err := secrets.NewBuilder(context.Background(), logger,
		&secrets.EnvSource{Allowlist: []string{"GW_TEST_VAR"}})
	require.NoError(t, err)

	cfg := &HandlerConfig{
		BundlePath:     bundle,
		RuntimePath:    runtime,
		DefaultTimeout: 10 * time.Second,
	}
	if mutate != nil {
		mutate(cfg)
	}

	m := metrics.New("gateway_test", logger)
	handler := NewHandler(cfg, logger, keypair, &attestation.DummyProvider{}, envBuilder, taskrunner.Factory(logger), m)

	server, err := New(&HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      logger,
		DrainDuration:            time.Millisecond,
		GracefulShutdownDuration: time.Second,
	}, handler, m)
	require.NoError(t, err)

	srv := httptest.NewServer(server.getRouter())
	t.Cleanup(srv.Close)
	return &testGateway{srv: srv, keypair: keypair, bundle: bundle}
}

func (g *testGateway) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(g.srv.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) *enclave.SignedEnvelope[TaskResponse] {
	t.Helper()
	defer resp.Body.Close()

	var envelope enclave.SignedEnvelope[TaskResponse]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return &envelope
}

func TestPing(t *testing.T) {
	g := newTestGateway(t, resultEcho, nil)

	resp, err := http.Get(g.srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Pong!", string(body))
}

func TestGetAttestation(t *testing.T) {
	g := newTestGateway(t, resultEcho, nil)

	resp, err := http.Get(g.srv.URL + "/get_attestation")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var attResp GetAttestationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&attResp))

	doc, err := hex.DecodeString(attResp.Attestation)
	require.NoError(t, err)
	// The dummy document embeds the report data, which starts with the
	// enclave public key.
	assert.Contains(t, string(doc), hex.EncodeToString(g.keypair.PublicKey()))
}

func TestProcessDataSignedResponse(t *testing.T) {
	g := newTestGateway(t, resultEcho, nil)

	resp := g.post(t, "/process_data", ProcessDataRequest[TaskRequest]{
		Payload: TaskRequest{Args: []string{"hello"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	require.NoError(t, enclave.Verify(g.keypair.PublicKey(), envelope))

	msg := envelope.Message
	assert.Equal(t, enclave.ScopeTaskExecution, msg.Scope)
	assert.NotZero(t, msg.TimestampMS)

	assert.Equal(t, "success", msg.Data.Status)
	assert.Equal(t, 0, msg.Data.ExitCode)
	assert.Contains(t, msg.Data.Stderr, "ARGS:hello")

	first, ok := msg.Data.Data.Get("first")
	require.True(t, ok)
	assert.Equal(t, "hello", first.Text())

	// The execution context reached the child.
	envVar, ok := msg.Data.Data.Get("var")
	require.True(t, ok)
	assert.Equal(t, "from-env", envVar.Text())
}

func TestProcessDataAppendsAttestationID(t *testing.T) {
	g := newTestGateway(t, `
echo "===TASK_RESULT_START==="
echo "{\"last\": \"$1\"}"
echo "===TASK_RESULT_END==="
`, nil)

	resp := g.post(t, "/process_data", ProcessDataRequest[TaskRequest]{})
	envelope := decodeEnvelope(t, resp)

	last, ok := envelope.Message.Data.Data.Get("last")
	require.True(t, ok)
	assert.Len(t, last.Text(), 64)
	_, err := hex.DecodeString(last.Text())
	assert.NoError(t, err)
}

func TestProcessDataNonZeroExit(t *testing.T) {
	g := newTestGateway(t, `
echo "boom" >&2
exit 2
`, nil)

	resp := g.post(t, "/process_data", ProcessDataRequest[TaskRequest]{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	require.NoError(t, enclave.Verify(g.keypair.PublicKey(), envelope))

	assert.Equal(t, "failed", envelope.Message.Data.Status)
	assert.Equal(t, 2, envelope.Message.Data.ExitCode)

	// No markers in stdout, so the fallback result is returned.
	status, ok := envelope.Message.Data.Data.Get("status")
	require.True(t, ok)
	assert.Equal(t, "failed", status.Text())
	_, ok = envelope.Message.Data.Data.Get("raw_output")
	assert.True(t, ok)
}

func TestProcessDataTimeout(t *testing.T) {
	g := newTestGateway(t, `sleep 30`, nil)

	one := uint64(1)
	resp := g.post(t, "/process_data", ProcessDataRequest[TaskRequest]{
		Payload: TaskRequest{TimeoutSecs: &one},
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
}

func TestProcessDataMissingBundle(t *testing.T) {
	g := newTestGateway(t, resultEcho, func(cfg *HandlerConfig) {
		cfg.BundlePath = "/does/not/exist"
	})

	resp := g.post(t, "/process_data", ProcessDataRequest[TaskRequest]{})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProcessDataMalformedBody(t *testing.T) {
	g := newTestGateway(t, resultEcho, nil)

	resp, err := http.Post(g.srv.URL+"/process_data", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEmbeddingIngestArguments(t *testing.T) {
	g := newTestGateway(t, resultEcho, nil)

	batch := uint32(16)
	resp := g.post(t, "/embedding_ingest", ProcessDataRequest[EmbeddingIngestRequest]{
		Payload: EmbeddingIngestRequest{
			WalrusBlobID:     "blob-1",
			Address:          "0xabc",
			OnChainFileObjID: "file-1",
			PolicyObjectID:   "policy-1",
			Threshold:        "2",
			BatchSize:        &batch,
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	stderr := envelope.Message.Data.Stderr
	assert.Contains(t, stderr, "--operation embedding")
	assert.Contains(t, stderr, "--walrus-blob-id blob-1")
	assert.Contains(t, stderr, "--address 0xabc")
	assert.Contains(t, stderr, "--on-chain-file-obj-id file-1")
	assert.Contains(t, stderr, "--policy-object-id policy-1")
	assert.Contains(t, stderr, "--threshold 2")
	assert.Contains(t, stderr, "--batch-size 16")
}

func TestRetrieveMessagesArguments(t *testing.T) {
	g := newTestGateway(t, resultEcho, nil)

	limit := uint32(5)
	resp := g.post(t, "/retrieve_messages", ProcessDataRequest[MessageRetrievalRequest]{
		Payload: MessageRetrievalRequest{
			Query:            "what happened",
			Limit:            &limit,
			Address:          "0xabc",
			OnChainFileObjID: "file-1",
			PolicyObjectID:   "policy-1",
			Threshold:        "2",
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	stderr := envelope.Message.Data.Stderr
	assert.Contains(t, stderr, "--operation retrieve")
	assert.Contains(t, stderr, "--query what happened")
	assert.Contains(t, stderr, "--limit 5")
}

func TestRetrieveMessagesByBlobIDsArguments(t *testing.T) {
	g := newTestGateway(t, resultEcho, nil)

	resp := g.post(t, "/retrieve_messages_by_blob_ids", ProcessDataRequest[MessageBlobRetrievalRequest]{
		Payload: MessageBlobRetrievalRequest{
			BlobFilePairs: []BlobFilePair{
				{WalrusBlobID: "blob-1", OnChainFileObjID: "file-1", PolicyObjectID: "policy-1"},
				{WalrusBlobID: "blob-2", OnChainFileObjID: "file-2", PolicyObjectID: "policy-2"},
			},
			Address:   "0xabc",
			Threshold: "2",
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	stderr := envelope.Message.Data.Stderr
	assert.Contains(t, stderr, "--operation retrieve-by-blob-ids")
	assert.Contains(t, stderr, "--blob-file-pairs")
	assert.Contains(t, stderr, "blob-2")
}

func TestHealthCheck(t *testing.T) {
	g := newTestGateway(t, resultEcho, func(cfg *HandlerConfig) {
		cfg.RequiredVars = []string{"GW_TEST_VAR"}
		cfg.AllowedEndpointsFile = ""
	})

	resp, err := http.Get(g.srv.URL + "/health_check")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthCheckResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))

	assert.Equal(t, g.keypair.PublicKeyHex(), health.PK)
	assert.Empty(t, health.EndpointsStatus)
	assert.True(t, health.ConfigStatus.ConfigValid)
	assert.Equal(t, map[string]bool{"GW_TEST_VAR": true}, health.ConfigStatus.ConfigInfo.RequiredVars)
}

func TestConfigReportsMissingVariable(t *testing.T) {
	g := newTestGateway(t, resultEcho, func(cfg *HandlerConfig) {
		cfg.RequiredVars = []string{"GW_TEST_VAR", "NOT_CONFIGURED"}
	})

	resp, err := http.Get(g.srv.URL + "/config")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var config ConfigResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&config))

	assert.False(t, config.ConfigValid)
	assert.Contains(t, config.ValidationError, "NOT_CONFIGURED")
	assert.False(t, config.ConfigInfo.RequiredVars["NOT_CONFIGURED"])
	assert.True(t, config.ConfigInfo.RequiredVars["GW_TEST_VAR"])
	// Names only, never values.
	assert.Equal(t, []string{"GW_TEST_VAR"}, config.ConfigInfo.ConfiguredVars)
}

func TestDrainAndUndrain(t *testing.T) {
	g := newTestGateway(t, resultEcho, nil)

	readyz := func() int {
		resp, err := http.Get(g.srv.URL + "/readyz")
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, readyz())

	resp, err := http.Get(g.srv.URL + "/drain")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, readyz())

	resp, err = http.Get(g.srv.URL + "/undrain")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, readyz())
}
