// Package flags declares the CLI flags shared by the gateway binary
// and helpers to turn them into configured components.
package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/attestedrun/tee-task-gateway/common"
	"github.com/attestedrun/tee-task-gateway/httpserver"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *httpserver.HTTPServerConfig {
	return &httpserver.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		// No write timeout: task endpoints block for up to the task
		// timeout, which the request chooses.
		WriteTimeout: 0,
	}
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "0.0.0.0:3000",
	Usage: "address to listen on for API",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: "tee-task-gateway",
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}

var TaskBundleFlag = &cli.StringFlag{
	Name:  "task-bundle",
	Value: "nodejs-task",
	Usage: "path to the executable task bundle directory",
}
var RuntimePathFlag = &cli.StringFlag{
	Name:  "runtime-path",
	Value: "/nodejs/bin/node",
	Usage: "path to the runtime binary executing the bundle",
}
var DefaultTimeoutFlag = &cli.Uint64Flag{
	Name:  "task-timeout-seconds",
	Value: 120,
	Usage: "default task timeout when the request doesn't set one",
}
var EmbeddingTimeoutFlag = &cli.Uint64Flag{
	Name:  "embedding-timeout-seconds",
	Value: 300,
	Usage: "default timeout for embedding ingestion tasks",
}

var AttestationTypeFlag = &cli.StringFlag{
	Name:  "attestation-type",
	Value: "dcap",
	Usage: "attestation provider: 'dcap', 'remote' or 'dummy'",
}
var AttestationAddrFlag = &cli.StringFlag{
	Name:  "attestation-addr",
	Usage: "address of the remote quote provider (required for 'remote')",
}

var KeySeedFlag = &cli.StringFlag{
	Name:  "key-seed",
	Usage: "hex-encoded seed (>= 32 bytes) to derive the signing key from; random key if unset",
}

var EnvFileFlag = &cli.StringFlag{
	Name:  "env-file",
	Usage: "dotenv file loaded into the task execution context",
}
var EnvPassthroughFlag = &cli.StringSliceFlag{
	Name:  "env-passthrough",
	Usage: "host environment variable forwarded to tasks (repeatable)",
}
var RequiredVarsFlag = &cli.StringSliceFlag{
	Name:  "required-var",
	Usage: "execution context variable that must be configured (repeatable)",
}

var AWSSecretIDFlag = &cli.StringFlag{
	Name:  "aws-secret-id",
	Usage: "AWS Secrets Manager secret holding task variables as a JSON object",
}
var AWSRegionFlag = &cli.StringFlag{
	Name:  "aws-region",
	Value: "us-east-1",
	Usage: "AWS region for Secrets Manager",
}

var VaultAddrFlag = &cli.StringFlag{
	Name:  "vault-addr",
	Usage: "Vault server address for task variables",
}
var VaultTokenFlag = &cli.StringFlag{
	Name:    "vault-token",
	Usage:   "Vault token",
	EnvVars: []string{"VAULT_TOKEN"},
}
var VaultMountFlag = &cli.StringFlag{
	Name:  "vault-mount",
	Value: "secret",
	Usage: "Vault KV v2 mount",
}
var VaultPathFlag = &cli.StringFlag{
	Name:  "vault-path",
	Usage: "Vault KV v2 path holding task variables",
}

var AllowedEndpointsFlag = &cli.StringFlag{
	Name:  "allowed-endpoints-file",
	Value: "allowed_endpoints.yaml",
	Usage: "YAML allowlist of hosts probed by the health check",
}

var CommonFlags = []cli.Flag{
	ListenAddrFlag,
	MetricsAddrFlag,
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
	PprofFlag,
	DrainSecondsFlag,
}
