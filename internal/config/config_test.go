package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.RPCEndpoint)
	assert.Equal(t, 120*time.Millisecond, cfg.RPCMinInterval)
	assert.Equal(t, 5, cfg.RPCMaxRetries)
	assert.Equal(t, "memory", cfg.DatabaseURL)
	assert.Equal(t, 100, cfg.IngestBatchSize)
	assert.Equal(t, 3, cfg.ScoringMaxDepth)
	assert.Equal(t, 0.35, cfg.ScoringThreshold)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadRespectsEnvOverridesAndClampsRetries(t *testing.T) {
	t.Setenv("RPC_ENDPOINT", "https://custom.rpc.example")
	t.Setenv("RPC_MAX_RETRIES", "999")
	defer os.Unsetenv("RPC_ENDPOINT")
	defer os.Unsetenv("RPC_MAX_RETRIES")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://custom.rpc.example", cfg.RPCEndpoint)
	assert.Equal(t, 15, cfg.RPCMaxRetries)
}
