package httpserver

import (
	"github.com/attestedrun/tee-task-gateway/structured"
)

// ProcessDataRequest is the generic wrapper every task endpoint
// accepts. The payload shape varies per endpoint.
type ProcessDataRequest[T any] struct {
	Payload T `json:"payload"`
}

// TaskRequest drives the generic /process_data endpoint: caller-chosen
// arguments for the bundle entry point.
type TaskRequest struct {
	TimeoutSecs *uint64  `json:"timeout_secs,omitempty"`
	Args        []string `json:"args,omitempty"`
}

// EmbeddingIngestRequest drives /embedding_ingest. Field values are
// opaque identifiers forwarded to the child as flags; the gateway
// attaches no meaning to them.
type EmbeddingIngestRequest struct {
	WalrusBlobID     string  `json:"walrusBlobId"`
	Address          string  `json:"address"`
	OnChainFileObjID string  `json:"onChainFileObjId"`
	PolicyObjectID   string  `json:"policyObjectId"`
	Threshold        string  `json:"threshold"`
	TimeoutSecs      *uint64 `json:"timeout_secs,omitempty"`
	BatchSize        *uint32 `json:"batchSize,omitempty"`
}

// MessageRetrievalRequest drives /retrieve_messages.
type MessageRetrievalRequest struct {
	Query            string  `json:"query"`
	Limit            *uint32 `json:"limit,omitempty"`
	Address          string  `json:"address"`
	OnChainFileObjID string  `json:"onChainFileObjId"`
	PolicyObjectID   string  `json:"policyObjectId"`
	Threshold        string  `json:"threshold"`
	TimeoutSecs      *uint64 `json:"timeout_secs,omitempty"`
}

// BlobFilePair names one blob with its on-chain file and policy.
type BlobFilePair struct {
	WalrusBlobID     string `json:"walrusBlobId"`
	OnChainFileObjID string `json:"onChainFileObjId"`
	PolicyObjectID   string `json:"policyObjectId"`
}

// MessageBlobRetrievalRequest drives /retrieve_messages_by_blob_ids.
// PolicyObjectID is optional because each pair carries its own.
type MessageBlobRetrievalRequest struct {
	BlobFilePairs  []BlobFilePair `json:"blobFilePairs"`
	Address        string         `json:"address"`
	PolicyObjectID *string        `json:"policyObjectId,omitempty"`
	Threshold      string         `json:"threshold"`
	TimeoutSecs    *uint64        `json:"timeout_secs,omitempty"`
}

// TaskResponse is the signed payload of every task endpoint. Status is
// derived from the child's exit code; a non-zero exit is reported
// here, never as an HTTP error. The CBOR array form is what gets
// signed, so field order is part of the wire contract.
type TaskResponse struct {
	_ struct{} `cbor:",toarray"`

	Status          string           `json:"status"`
	Data            structured.Value `json:"data"`
	Stderr          string           `json:"stderr"`
	ExitCode        int              `json:"exit_code"`
	ExecutionTimeMS uint64           `json:"execution_time_ms"`
}

// GetAttestationResponse carries a hex-encoded attestation document.
type GetAttestationResponse struct {
	Attestation string `json:"attestation"`
}

// ConfigInfo is the non-sensitive configuration echo: paths, and for
// each required variable whether it is configured. Never values.
type ConfigInfo struct {
	BundlePath     string          `json:"bundle_path"`
	RuntimePath    string          `json:"runtime_path"`
	RequiredVars   map[string]bool `json:"required_vars"`
	ConfiguredVars []string        `json:"configured_vars"`
}

// ConfigStatus pairs the validity verdict with its details.
type ConfigStatus struct {
	ConfigValid bool       `json:"config_valid"`
	ConfigInfo  ConfigInfo `json:"config_info"`
}

// ConfigResponse is the /config body.
type ConfigResponse struct {
	ConfigStatus
	ValidationError string `json:"validation_error,omitempty"`
}

// HealthCheckResponse is the /health_check body.
type HealthCheckResponse struct {
	PK              string          `json:"pk"`
	EndpointsStatus map[string]bool `json:"endpoints_status"`
	ConfigStatus    ConfigStatus    `json:"config_status"`
}
