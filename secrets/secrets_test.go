package secrets

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnvSourceAllowlist(t *testing.T) {
	t.Setenv("SECRETS_TEST_PRESENT", "value")
	t.Setenv("SECRETS_TEST_BLOCKED", "hidden")

	vars, err := (&EnvSource{Allowlist: []string{"SECRETS_TEST_PRESENT", "SECRETS_TEST_ABSENT"}}).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"SECRETS_TEST_PRESENT": "value"}, vars)
}

func TestDotenvSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FIRST=one\nSECOND=two\n"), 0o600))

	vars, err := (&DotenvSource{Path: path}).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"FIRST": "one", "SECOND": "two"}, vars)
}

func TestDotenvSourceMissingFile(t *testing.T) {
	_, err := (&DotenvSource{Path: filepath.Join(t.TempDir(), "absent.env")}).Load(context.Background())
	require.Error(t, err)
}

type staticSource struct {
	name string
	vars map[string]string
	err  error
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Load(context.Context) (map[string]string, error) { return s.vars, s.err }

func TestBuilderMergeOrder(t *testing.T) {
	builder, err := NewBuilder(context.Background(), testLogger(),
		&staticSource{name: "base", vars: map[string]string{"A": "base", "B": "base"}},
		&staticSource{name: "override", vars: map[string]string{"B": "override", "C": "override"}},
	)
	require.NoError(t, err)

	env := builder.Environment(nil)
	assert.Equal(t, map[string]string{"A": "base", "B": "override", "C": "override"}, env)
}

func TestBuilderSourceFailureAbortsBoot(t *testing.T) {
	_, err := NewBuilder(context.Background(), testLogger(),
		&staticSource{name: "good", vars: map[string]string{"A": "1"}},
		&staticSource{name: "bad", err: assert.AnError},
	)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestEnvironmentExtrasWinAndCopy(t *testing.T) {
	builder, err := NewBuilder(context.Background(), testLogger(),
		&staticSource{name: "base", vars: map[string]string{"A": "base"}},
	)
	require.NoError(t, err)

	env := builder.Environment(map[string]string{"A": "extra", "B": "extra"})
	assert.Equal(t, map[string]string{"A": "extra", "B": "extra"}, env)

	// Mutating the returned map must not touch the cached material.
	env["A"] = "mutated"
	assert.Equal(t, map[string]string{"A": "base"}, builder.Environment(nil))
}

func TestKeysAndHas(t *testing.T) {
	builder, err := NewBuilder(context.Background(), testLogger(),
		&staticSource{name: "base", vars: map[string]string{"ZULU": "1", "ALPHA": "2"}},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"ALPHA", "ZULU"}, builder.Keys())
	assert.True(t, builder.Has("ALPHA"))
	assert.False(t, builder.Has("MISSING"))
}
