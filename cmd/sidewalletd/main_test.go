package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3-fighter/sidewallet-analytics/internal/config"
	"github.com/web3-fighter/sidewallet-analytics/internal/walletstore"
)

func TestRootCmdRegistersAllSubcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"ingest", "ingest-batch", "backfill", "score"}, names)
}

func TestIngestCmdRequiresExactlyOneArg(t *testing.T) {
	root := newRootCmd()
	ingestCmd, _, err := root.Find([]string{"ingest"})
	require.NoError(t, err)
	assert.Error(t, ingestCmd.Args(ingestCmd, []string{}))
	assert.Error(t, ingestCmd.Args(ingestCmd, []string{"a", "b"}))
	assert.NoError(t, ingestCmd.Args(ingestCmd, []string{"only-one"}))
}

func TestIngestBatchCmdRequiresAtLeastOneArg(t *testing.T) {
	root := newRootCmd()
	cmd, _, err := root.Find([]string{"ingest-batch"})
	require.NoError(t, err)
	assert.Error(t, cmd.Args(cmd, []string{}))
	assert.NoError(t, cmd.Args(cmd, []string{"one"}))
	assert.NoError(t, cmd.Args(cmd, []string{"one", "two"}))
}

func TestScoreCmdFlagDefaults(t *testing.T) {
	root := newRootCmd()
	cmd, _, err := root.Find([]string{"score"})
	require.NoError(t, err)

	depth, err := cmd.Flags().GetInt("depth")
	require.NoError(t, err)
	assert.Equal(t, 3, depth)

	threshold, err := cmd.Flags().GetFloat64("threshold")
	require.NoError(t, err)
	assert.Equal(t, 0.35, threshold)

	limit, err := cmd.Flags().GetInt("limit")
	require.NoError(t, err)
	assert.Equal(t, 25, limit)

	lookback, err := cmd.Flags().GetInt("lookback-days")
	require.NoError(t, err)
	assert.Equal(t, 90, lookback)
}

func TestBackfillCmdFlagDefault(t *testing.T) {
	root := newRootCmd()
	cmd, _, err := root.Find([]string{"backfill"})
	require.NoError(t, err)

	limit, err := cmd.Flags().GetInt("limit")
	require.NoError(t, err)
	assert.Equal(t, 50, limit)
}

func TestOpenStoreReturnsMemoryStoreForDefaultConfig(t *testing.T) {
	cfg := &config.Config{DatabaseURL: "memory"}
	store, closeFn, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()

	_, ok := store.(*walletstore.MemoryStore)
	assert.True(t, ok)
}

func TestOpenStoreTreatsEmptyDatabaseURLAsMemory(t *testing.T) {
	cfg := &config.Config{DatabaseURL: ""}
	store, closeFn, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()

	_, ok := store.(*walletstore.MemoryStore)
	assert.True(t, ok)
}
