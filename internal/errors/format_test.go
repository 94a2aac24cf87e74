package errors

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForUser_BasicError(t *testing.T) {
	err := New(ErrCodeNotReady, "vector store not loaded", nil)

	result := FormatForUser(err, false)

	assert.Contains(t, result, "vector store not loaded")
	assert.Contains(t, result, "[ERR_503_NOT_READY]")
}

func TestFormatForUser_WithSuggestion(t *testing.T) {
	err := New(ErrCodeTransientLLM, "anthropic provider unreachable", nil).
		WithSuggestion("falling back to the secondary provider")

	result := FormatForUser(err, false)

	assert.Contains(t, result, "Suggestion:")
	assert.Contains(t, result, "secondary provider")
}

func TestFormatForUser_NoStackTraceInNormalMode(t *testing.T) {
	err := New(ErrCodeInternal, "unexpected error", nil)

	result := FormatForUser(err, false)

	assert.NotContains(t, result, "Stack trace:")
	assert.NotContains(t, result, "goroutine")
}

func TestFormatForUser_StandardError(t *testing.T) {
	err := errors.New("something went wrong")

	result := FormatForUser(err, false)

	assert.Contains(t, result, "something went wrong")
}

func TestFormatForUser_NilError(t *testing.T) {
	result := FormatForUser(nil, false)

	assert.Empty(t, result)
}

func TestFormatJSON_BasicError(t *testing.T) {
	err := New(ErrCodeNotReady, "bm25 index not loaded", nil).
		WithDetail("partition", "articles").
		WithSuggestion("wait for startup to finish")

	data, jsonErr := FormatJSON(err)

	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, ErrCodeNotReady, result["code"])
	assert.Equal(t, "bm25 index not loaded", result["message"])
	assert.Equal(t, string(KindNotReady), result["kind"])
	assert.Equal(t, string(SeverityError), result["severity"])
	assert.Equal(t, "wait for startup to finish", result["suggestion"])

	details, ok := result["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "articles", details["partition"])
}

func TestFormatJSON_StandardError(t *testing.T) {
	err := errors.New("generic error")

	data, jsonErr := FormatJSON(err)

	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, ErrCodeInternal, result["code"])
	assert.Equal(t, "generic error", result["message"])
}

func TestFormatJSON_NilError(t *testing.T) {
	data, err := FormatJSON(nil)

	assert.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(string(data)))
}

func TestFormatJSON_WithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := New(ErrCodeInternal, "operation failed", cause)

	data, jsonErr := FormatJSON(err)

	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "underlying error", result["cause"])
}

func TestFormatForCLI_FormatsFatalError(t *testing.T) {
	err := New(ErrCodeArtifactCorruption, "vector/bm25 id sets differ", nil).
		WithSuggestion("rerun the offline indexer")

	result := FormatForCLI(err)

	assert.Contains(t, result, "vector/bm25 id sets differ")
	assert.Contains(t, result, "ERR_422_ARTIFACT_CORRUPTION")
}

func TestFormatForCLI_ShortFormat(t *testing.T) {
	err := New(ErrCodeNotReady, "not ready", nil)

	result := FormatForCLI(err)

	lines := strings.Split(strings.TrimSpace(result), "\n")
	assert.LessOrEqual(t, len(lines), 5, "Should be concise")
}
