package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/odyssey-tax/testing"
)

func TestNewLoggerJSONLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newLogger(buf, &Config{AppEnv: "production", LogFormat: "json", LogLevel: "warn"})

	logger.Info("dropped")
	logger.Warn("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "odyssey-tax", entry["service"])
	assert.Equal(t, "production", entry["env"])
}

func TestInTestMode(t *testing.T) {
	assert.True(t, InTestMode())
}
