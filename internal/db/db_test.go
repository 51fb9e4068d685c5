package db_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/CamberLoid/FHEVault/internal/db"
	"github.com/CamberLoid/FHEVault/internal/store"
	"github.com/CamberLoid/FHEVault/internal/store/storetest"
	"github.com/CamberLoid/FHEVault/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *db.SQLiteStore {
	s, err := db.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return openTestStore(t)
	})
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "server.db")

	s, err := db.Open(path)
	require.NoError(t, err)
	rec := strategy.NewRecord("abc", strategy.Input{RiskLevel: 2, Allocation: 3, Timeframe: 4}, "d", "h", time.Now())
	require.NoError(t, s.Create(ctx, rec))
	require.NoError(t, s.Close())

	s, err = db.Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, strategy.Input{RiskLevel: 2, Allocation: 3, Timeframe: 4}, got.Input())
}
