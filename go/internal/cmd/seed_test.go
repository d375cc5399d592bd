package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/dynasty-market/go/internal/models"
	"github.com/mcdev12/dynasty-market/go/internal/roster"
	"github.com/mcdev12/dynasty-market/go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "teams": [{"name": "Team A"}, {"name": "Team B"}],
  "players": [
    {"full_name": "Player X", "salary": 1000000, "team": "Team A"},
    {"full_name": "Player Y", "salary": 70000000, "team": "Team B"},
    {"full_name": "Player Z", "salary": 500000},
    {"full_name": "Player W", "team": "Team Q"}
  ]
}`), 0o600))

	f, err := readSeedFile(path)
	require.NoError(t, err)

	settings := models.DefaultMarketSettings()
	ledger := roster.NewLedger(store.NewMemoryStore(), settings, clockwork.NewFakeClock())
	res, err := seed(context.Background(), ledger, f)
	require.NoError(t, err)

	assert.Equal(t, seedResult{Teams: 2, Players: 3, Rostered: 1, Skipped: 2}, res)
}

func TestReadSeedFile_Missing(t *testing.T) {
	_, err := readSeedFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
