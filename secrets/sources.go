package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	vaultapi "github.com/hashicorp/vault/api"
	"github.com/joho/godotenv"
)

// Source supplies one batch of environment material.
type Source interface {
	// Name identifies the source in logs and diagnostics.
	Name() string

	// Load fetches the source's variables. Called once at boot.
	Load(ctx context.Context) (map[string]string, error)
}

// EnvSource passes through an allowlisted subset of the host
// environment. Variables absent from the host are skipped, not
// emptied.
type EnvSource struct {
	Allowlist []string
}

func (s *EnvSource) Name() string { return "env" }

func (s *EnvSource) Load(_ context.Context) (map[string]string, error) {
	vars := make(map[string]string)
	for _, key := range s.Allowlist {
		if value, ok := os.LookupEnv(key); ok {
			vars[key] = value
		}
	}
	return vars, nil
}

// DotenvSource reads a dotenv-format file. A missing file is an error;
// configure the source only when the file is expected to exist.
type DotenvSource struct {
	Path string
}

func (s *DotenvSource) Name() string { return "dotenv" }

func (s *DotenvSource) Load(_ context.Context) (map[string]string, error) {
	vars, err := godotenv.Read(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading dotenv file %s: %w", s.Path, err)
	}
	return vars, nil
}

// AWSSecretsManagerSource fetches a single secret whose value is a
// flat JSON object of string variables.
type AWSSecretsManagerSource struct {
	SecretID string
	Region   string
}

func (s *AWSSecretsManagerSource) Name() string { return "aws-secrets-manager" }

func (s *AWSSecretsManagerSource) Load(ctx context.Context) (map[string]string, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(s.Region)})
	if err != nil {
		return nil, fmt.Errorf("creating AWS session: %w", err)
	}

	out, err := secretsmanager.New(sess).GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.SecretID),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching secret %s: %w", s.SecretID, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string payload", s.SecretID)
	}

	var vars map[string]string
	if err := json.Unmarshal([]byte(*out.SecretString), &vars); err != nil {
		return nil, fmt.Errorf("secret %s is not a flat JSON object: %w", s.SecretID, err)
	}
	return vars, nil
}

// VaultSource fetches a KV v2 secret and keeps its string-valued
// fields. Non-string fields are rejected rather than coerced.
type VaultSource struct {
	Address string
	Token   string
	Mount   string
	Path    string
}

func (s *VaultSource) Name() string { return "vault" }

func (s *VaultSource) Load(ctx context.Context) (map[string]string, error) {
	config := vaultapi.DefaultConfig()
	config.Address = s.Address

	client, err := vaultapi.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("creating vault client: %w", err)
	}
	client.SetToken(s.Token)

	secret, err := client.KVv2(s.Mount).Get(ctx, s.Path)
	if err != nil {
		return nil, fmt.Errorf("fetching vault secret %s/%s: %w", s.Mount, s.Path, err)
	}

	vars := make(map[string]string, len(secret.Data))
	for key, raw := range secret.Data {
		value, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("vault secret %s/%s: field %q is not a string", s.Mount, s.Path, key)
		}
		vars[key] = value
	}
	return vars, nil
}
