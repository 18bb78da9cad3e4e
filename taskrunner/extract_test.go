package taskrunner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractResult(t *testing.T) {
	stdout := "some diagnostic noise\n" +
		ResultStartMarker + "\n" +
		`{"status": "completed", "count": 3}` + "\n" +
		ResultEndMarker + "\n" +
		"trailing noise\n"

	v, ok := ExtractResult(stdout)
	require.True(t, ok)

	status, found := v.Get("status")
	require.True(t, found)
	assert.Equal(t, "completed", status.Text())
}

func TestExtractResultMissingStartMarker(t *testing.T) {
	stdout := "no markers here\n"

	v, ok := ExtractResult(stdout)
	require.False(t, ok)

	status, found := v.Get("status")
	require.True(t, found)
	assert.Equal(t, "failed", status.Text())

	raw, found := v.Get("raw_output")
	require.True(t, found)
	assert.Equal(t, stdout, raw.Text())

	_, found = v.Get("error")
	assert.True(t, found)
}

func TestExtractResultMissingEndMarker(t *testing.T) {
	stdout := ResultStartMarker + "\n{\"a\": 1}\n"

	v, ok := ExtractResult(stdout)
	require.False(t, ok)

	status, _ := v.Get("status")
	assert.Equal(t, "failed", status.Text())
}

func TestExtractResultEndBeforeStart(t *testing.T) {
	stdout := ResultEndMarker + "\n" + ResultStartMarker + "\n"

	_, ok := ExtractResult(stdout)
	assert.False(t, ok)
}

func TestExtractResultUnparseablePayload(t *testing.T) {
	stdout := ResultStartMarker + "\nnot json at all\n" + ResultEndMarker

	v, ok := ExtractResult(stdout)
	require.False(t, ok)

	raw, found := v.Get("raw_output")
	require.True(t, found)
	assert.Equal(t, stdout, raw.Text())
}

func TestExtractResultFirstPairWins(t *testing.T) {
	stdout := ResultStartMarker + `{"first": true}` + ResultEndMarker +
		ResultStartMarker + `{"second": true}` + ResultEndMarker

	v, ok := ExtractResult(stdout)
	require.True(t, ok)

	_, found := v.Get("first")
	assert.True(t, found)
}

func TestExtractResultScalarPayload(t *testing.T) {
	v, ok := ExtractResult(ResultStartMarker + ` 42 ` + ResultEndMarker)
	require.True(t, ok)
	assert.Equal(t, "42", v.Number().String())
}
