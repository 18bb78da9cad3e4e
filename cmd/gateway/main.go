// The gateway binary serves the attested task execution API.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/attestedrun/tee-task-gateway/attestation"
	"github.com/attestedrun/tee-task-gateway/cmd/flags"
	"github.com/attestedrun/tee-task-gateway/common"
	"github.com/attestedrun/tee-task-gateway/enclave"
	"github.com/attestedrun/tee-task-gateway/httpserver"
	"github.com/attestedrun/tee-task-gateway/metrics"
	"github.com/attestedrun/tee-task-gateway/secrets"
	"github.com/attestedrun/tee-task-gateway/taskrunner"
)

var appFlags = append([]cli.Flag{
	flags.TaskBundleFlag,
	flags.RuntimePathFlag,
	flags.DefaultTimeoutFlag,
	flags.EmbeddingTimeoutFlag,
	flags.AttestationTypeFlag,
	flags.AttestationAddrFlag,
	flags.KeySeedFlag,
	flags.EnvFileFlag,
	flags.EnvPassthroughFlag,
	flags.RequiredVarsFlag,
	flags.AWSSecretIDFlag,
	flags.AWSRegionFlag,
	flags.VaultAddrFlag,
	flags.VaultTokenFlag,
	flags.VaultMountFlag,
	flags.VaultPathFlag,
	flags.AllowedEndpointsFlag,
}, flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:    "tee-task-gateway",
		Usage:   "Serve the attested task execution API",
		Version: common.Version,
		Flags:   appFlags,
		Action:  run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	// Signing keypair: derived when a seed is supplied, otherwise fresh
	// random. Never persisted either way.
	var keypair *enclave.KeyPair
	if seedHex := cCtx.String(flags.KeySeedFlag.Name); seedHex != "" {
		seed, err := hex.DecodeString(seedHex)
		if err != nil {
			logger.Error("Invalid key seed", "err", err)
			return fmt.Errorf("invalid key-seed: %w", err)
		}
		keypair, err = enclave.DeriveKeyPair(seed)
		if err != nil {
			logger.Error("Failed to derive keypair", "err", err)
			return err
		}
		logger.Info("Derived signing keypair from seed", "pk", keypair.PublicKeyHex())
	} else {
		var err error
		keypair, err = enclave.NewKeyPair()
		if err != nil {
			logger.Error("Failed to generate keypair", "err", err)
			return err
		}
		logger.Info("Generated ephemeral signing keypair", "pk", keypair.PublicKeyHex())
	}

	attester, err := attestation.FromString(cCtx.String(flags.AttestationTypeFlag.Name), cCtx.String(flags.AttestationAddrFlag.Name))
	if err != nil {
		logger.Error("Failed to create attestation provider", "err", err)
		return err
	}

	envBuilder, err := buildExecutionContext(cCtx, logger)
	if err != nil {
		logger.Error("Failed to build task execution context", "err", err)
		return err
	}

	m := metrics.New(common.PackageName, logger)

	handler := httpserver.NewHandler(
		&httpserver.HandlerConfig{
			BundlePath:           cCtx.String(flags.TaskBundleFlag.Name),
			RuntimePath:          cCtx.String(flags.RuntimePathFlag.Name),
			DefaultTimeout:       time.Duration(cCtx.Uint64(flags.DefaultTimeoutFlag.Name)) * time.Second,
			EmbeddingTimeout:     time.Duration(cCtx.Uint64(flags.EmbeddingTimeoutFlag.Name)) * time.Second,
			AllowedEndpointsFile: cCtx.String(flags.AllowedEndpointsFlag.Name),
			RequiredVars:         cCtx.StringSlice(flags.RequiredVarsFlag.Name),
		},
		logger,
		keypair,
		attester,
		envBuilder,
		taskrunner.Factory(logger),
		m,
	)

	server, err := httpserver.New(flags.ConfigureServer(cCtx, logger), handler, m)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")

	return nil
}

// buildExecutionContext assembles the secrets sources selected by
// flags and loads them once. An --env-file is also loaded into the
// gateway's own environment first, so it can configure the process as
// well as the tasks.
func buildExecutionContext(cCtx *cli.Context, logger *slog.Logger) (*secrets.Builder, error) {
	var sources []secrets.Source

	if envFile := cCtx.String(flags.EnvFileFlag.Name); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
		sources = append(sources, &secrets.DotenvSource{Path: envFile})
	}

	if passthrough := cCtx.StringSlice(flags.EnvPassthroughFlag.Name); len(passthrough) > 0 {
		sources = append(sources, &secrets.EnvSource{Allowlist: passthrough})
	}

	if secretID := cCtx.String(flags.AWSSecretIDFlag.Name); secretID != "" {
		sources = append(sources, &secrets.AWSSecretsManagerSource{
			SecretID: secretID,
			Region:   cCtx.String(flags.AWSRegionFlag.Name),
		})
	}

	if vaultAddr := cCtx.String(flags.VaultAddrFlag.Name); vaultAddr != "" {
		sources = append(sources, &secrets.VaultSource{
			Address: vaultAddr,
			Token:   cCtx.String(flags.VaultTokenFlag.Name),
			Mount:   cCtx.String(flags.VaultMountFlag.Name),
			Path:    cCtx.String(flags.VaultPathFlag.Name),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return secrets.NewBuilder(ctx, logger, sources...)
}
