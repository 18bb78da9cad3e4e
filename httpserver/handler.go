package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/attestedrun/tee-task-gateway/attestation"
	"github.com/attestedrun/tee-task-gateway/enclave"
	"github.com/attestedrun/tee-task-gateway/interfaces"
	"github.com/attestedrun/tee-task-gateway/metrics"
	"github.com/attestedrun/tee-task-gateway/secrets"
	"github.com/attestedrun/tee-task-gateway/taskrunner"
)

// HandlerConfig carries everything the request pipeline needs beyond
// its collaborators.
type HandlerConfig struct {
	BundlePath  string
	RuntimePath string

	// DefaultTimeout bounds task endpoints that don't override it.
	// Embedding ingestion gets its own, longer default.
	DefaultTimeout   time.Duration
	EmbeddingTimeout time.Duration

	// AllowedEndpointsFile is the YAML connectivity allowlist probed by
	// /health_check. Empty disables probing.
	AllowedEndpointsFile string

	// RequiredVars must all be present in the execution context for the
	// configuration to be considered valid.
	RequiredVars []string
}

// Handler implements the gateway's API endpoints.
type Handler struct {
	cfg      *HandlerConfig
	log      *slog.Logger
	keypair  *enclave.KeyPair
	attester attestation.Provider
	env      *secrets.Builder
	runner   interfaces.RunnerFactory
	metrics  *metrics.Metrics
}

// NewHandler wires the pipeline together. Defaults: 120s task timeout,
// 300s embedding timeout.
func NewHandler(cfg *HandlerConfig, log *slog.Logger, kp *enclave.KeyPair, attester attestation.Provider, env *secrets.Builder, runner interfaces.RunnerFactory, m *metrics.Metrics) *Handler {
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = 120 * time.Second
	}
	if cfg.EmbeddingTimeout == 0 {
		cfg.EmbeddingTimeout = 300 * time.Second
	}
	return &Handler{
		cfg:      cfg,
		log:      log,
		keypair:  kp,
		attester: attester,
		env:      env,
		runner:   runner,
		metrics:  m,
	}
}

// HandlePing responds to the root liveness probe.
func (h *Handler) HandlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Pong!"))
}

// HandleGetAttestation returns a fresh attestation document binding
// the enclave's ephemeral public key.
func (h *Handler) HandleGetAttestation(w http.ResponseWriter, r *http.Request) {
	doc, err := h.attester.Attest(h.keypair.ReportData())
	if err != nil {
		h.log.Error("Attestation failed", "err", err)
		h.writeError(w, http.StatusInternalServerError, "attestation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, GetAttestationResponse{Attestation: doc.Hex()})
}

// HandleProcessData executes the bundle with caller-chosen arguments.
func (h *Handler) HandleProcessData(w http.ResponseWriter, r *http.Request) {
	var req ProcessDataRequest[TaskRequest]
	if !h.decode(w, r, &req) {
		return
	}
	h.execute(r.Context(), w, req.Payload.Args, req.Payload.TimeoutSecs, h.cfg.DefaultTimeout)
}

// HandleEmbeddingIngest executes the embedding ingestion operation.
func (h *Handler) HandleEmbeddingIngest(w http.ResponseWriter, r *http.Request) {
	var req ProcessDataRequest[EmbeddingIngestRequest]
	if !h.decode(w, r, &req) {
		return
	}

	args := []string{
		"--operation", "embedding",
		"--walrus-blob-id", req.Payload.WalrusBlobID,
		"--address", req.Payload.Address,
		"--on-chain-file-obj-id", req.Payload.OnChainFileObjID,
		"--policy-object-id", req.Payload.PolicyObjectID,
		"--threshold", req.Payload.Threshold,
	}
	if req.Payload.BatchSize != nil {
		args = append(args, "--batch-size", strconv.FormatUint(uint64(*req.Payload.BatchSize), 10))
	}

	h.execute(r.Context(), w, args, req.Payload.TimeoutSecs, h.cfg.EmbeddingTimeout)
}

// HandleRetrieveMessages executes the vector query operation.
func (h *Handler) HandleRetrieveMessages(w http.ResponseWriter, r *http.Request) {
	var req ProcessDataRequest[MessageRetrievalRequest]
	if !h.decode(w, r, &req) {
		return
	}

	args := []string{
		"--operation", "retrieve",
		"--query", req.Payload.Query,
		"--address", req.Payload.Address,
		"--on-chain-file-obj-id", req.Payload.OnChainFileObjID,
		"--policy-object-id", req.Payload.PolicyObjectID,
		"--threshold", req.Payload.Threshold,
	}
	if req.Payload.Limit != nil {
		args = append(args, "--limit", strconv.FormatUint(uint64(*req.Payload.Limit), 10))
	}

	h.execute(r.Context(), w, args, req.Payload.TimeoutSecs, h.cfg.DefaultTimeout)
}

// HandleRetrieveMessagesByBlobIDs executes the batch blob retrieval
// operation. The pair list travels as one JSON argument.
func (h *Handler) HandleRetrieveMessagesByBlobIDs(w http.ResponseWriter, r *http.Request) {
	var req ProcessDataRequest[MessageBlobRetrievalRequest]
	if !h.decode(w, r, &req) {
		return
	}

	pairs, err := json.Marshal(req.Payload.BlobFilePairs)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("serializing blob file pairs: %v", err))
		return
	}

	args := []string{
		"--operation", "retrieve-by-blob-ids",
		"--blob-file-pairs", string(pairs),
		"--address", req.Payload.Address,
		"--threshold", req.Payload.Threshold,
	}

	h.execute(r.Context(), w, args, req.Payload.TimeoutSecs, h.cfg.DefaultTimeout)
}

// execute is the shared task pipeline: attest, build the execution
// context, validate and run the bundle, extract the result, sign, and
// respond. Duration is measured around the whole validate+run span so
// it is meaningful on every path.
func (h *Handler) execute(ctx context.Context, w http.ResponseWriter, args []string, timeoutSecs *uint64, defaultTimeout time.Duration) {
	h.metrics.TasksStarted.Inc()

	doc, err := h.attester.Attest(h.keypair.ReportData())
	if err != nil {
		h.log.Error("Attestation failed", "err", err)
		h.writeError(w, http.StatusInternalServerError, "attestation failed")
		return
	}

	timeout := defaultTimeout
	if timeoutSecs != nil {
		timeout = time.Duration(*timeoutSecs) * time.Second
	}

	cfg := interfaces.TaskConfig{
		BundlePath:  h.cfg.BundlePath,
		RuntimePath: h.cfg.RuntimePath,
		Timeout:     timeout,
		Args:        append(args, doc.ID()),
		Env:         h.env.Environment(nil),
	}
	runner := h.runner(cfg)

	started := time.Now()
	output, err := h.runTask(ctx, runner)
	elapsed := time.Since(started)
	h.metrics.TaskDuration.Observe(elapsed.Seconds())

	if err != nil {
		h.respondRunError(w, err)
		return
	}

	data, extracted := taskrunner.ExtractResult(output.Stdout)
	if !extracted {
		h.metrics.ExtractionFailures.Inc()
	}

	status := "success"
	if output.ExitCode != 0 {
		status = "failed"
	}
	h.metrics.TasksCompleted.WithLabelValues(status).Inc()

	resp := TaskResponse{
		Status:          status,
		Data:            data,
		Stderr:          output.Stderr,
		ExitCode:        output.ExitCode,
		ExecutionTimeMS: uint64(elapsed.Milliseconds()),
	}

	envelope, err := enclave.Sign(h.keypair, resp, enclave.ScopeTaskExecution, uint64(time.Now().UnixMilli()))
	if err != nil {
		h.log.Error("Signing task response failed", "err", err)
		h.writeError(w, http.StatusInternalServerError, "signing failed")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope)
}

func (h *Handler) runTask(ctx context.Context, runner interfaces.TaskRunner) (*interfaces.TaskOutput, error) {
	if err := runner.Validate(); err != nil {
		return nil, err
	}
	if err := runner.VerifyRuntime(ctx); err != nil {
		return nil, err
	}
	return runner.Run(ctx)
}

func (h *Handler) respondRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, interfaces.ErrTimeout):
		h.metrics.TaskTimeouts.Inc()
		h.log.Warn("Task execution timed out", "err", err)
		h.writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, interfaces.ErrMissingBundle),
		errors.Is(err, interfaces.ErrMissingManifest),
		errors.Is(err, interfaces.ErrMissingEntryPoint),
		errors.Is(err, interfaces.ErrRuntimeUnavailable):
		h.log.Error("Task bundle validation failed", "err", err)
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("Task execution failed", "err", err)
		h.writeError(w, http.StatusInternalServerError, "task execution failed")
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("decoding request: %v", err))
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("Writing response failed", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
