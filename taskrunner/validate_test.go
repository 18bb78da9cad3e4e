package taskrunner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attestedrun/tee-task-gateway/interfaces"
)

func TestValidate(t *testing.T) {
	bundle, runtime := writeBundle(t, `echo ok`)

	require.NoError(t, New(testConfig(bundle, runtime), testLogger()).Validate())
}

func TestValidateMissingBundle(t *testing.T) {
	err := New(testConfig("/does/not/exist", "/bin/sh"), testLogger()).Validate()
	assert.ErrorIs(t, err, interfaces.ErrMissingBundle)
}

func TestValidateBundleNotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bundle")
	require.NoError(t, os.WriteFile(file, []byte("not a dir"), 0o644))

	err := New(testConfig(file, "/bin/sh"), testLogger()).Validate()
	assert.ErrorIs(t, err, interfaces.ErrMissingBundle)
}

func TestValidateMissingManifest(t *testing.T) {
	bundle, runtime := writeBundle(t, `echo ok`)
	require.NoError(t, os.Remove(filepath.Join(bundle, "package.json")))

	err := New(testConfig(bundle, runtime), testLogger()).Validate()
	assert.ErrorIs(t, err, interfaces.ErrMissingManifest)
}

func TestValidateMissingEntryPoint(t *testing.T) {
	bundle, runtime := writeBundle(t, `echo ok`)
	require.NoError(t, os.Remove(filepath.Join(bundle, "index.js")))

	err := New(testConfig(bundle, runtime), testLogger()).Validate()
	assert.ErrorIs(t, err, interfaces.ErrMissingEntryPoint)
}

func TestVerifyRuntime(t *testing.T) {
	bundle, runtime := writeBundle(t, `echo ok`)

	require.NoError(t, New(testConfig(bundle, runtime), testLogger()).VerifyRuntime(context.Background()))
}

func TestVerifyRuntimeMissingBinary(t *testing.T) {
	bundle, _ := writeBundle(t, `echo ok`)

	cfg := testConfig(bundle, filepath.Join(bundle, "no-such-runtime"))
	err := New(cfg, testLogger()).VerifyRuntime(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrRuntimeUnavailable)
}

func TestVerifyRuntimeProbeFailure(t *testing.T) {
	bundle, _ := writeBundle(t, `echo ok`)

	broken := filepath.Join(bundle, "broken-runtime")
	require.NoError(t, os.WriteFile(broken, []byte("#!/bin/sh\necho no version here >&2\nexit 1\n"), 0o755))

	cfg := testConfig(bundle, broken)
	err := New(cfg, testLogger()).VerifyRuntime(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrRuntimeUnavailable)
}
