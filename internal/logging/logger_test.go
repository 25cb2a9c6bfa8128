package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("warn"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("info"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}

func TestJSONOutputIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Format: "json", Output: &buf})

	logger.WithComponent("runtime").Info(context.Background(), "compiled",
		"template", "header", "tier", "disk")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "compiled", record["msg"])
	assert.Equal(t, "runtime", record["component"])
	assert.Equal(t, "header", record["template"])
	assert.Equal(t, "disk", record["tier"])
}

func TestErrorFieldAttached(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Format: "json", Output: &buf})

	logger.Error(context.Background(), errors.New("boom"), "compile failed")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "boom", record["error"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelWarn, Format: "text", Output: &buf})

	logger.Debug(context.Background(), "hidden")
	logger.Info(context.Background(), "hidden too")
	assert.Zero(t, buf.Len())

	logger.Warn(context.Background(), nil, "visible")
	assert.NotZero(t, buf.Len())
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	// Must not panic and must keep returning a usable logger.
	logger.WithComponent("x").Info(context.Background(), "ignored")
}
