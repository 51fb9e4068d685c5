// Package storetest holds the behaviour every store.Store must share.
package storetest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/CamberLoid/FHEVault/internal/store"
	"github.com/CamberLoid/FHEVault/internal/strategy"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(created time.Time) *strategy.Record {
	return strategy.NewRecord(uuid.New().String(),
		strategy.Input{RiskLevel: 7, Allocation: 75, Timeframe: 90},
		"ZW5jcnlwdGVk", "0xhash", created)
}

// Run exercises s against the store contract. newStore must return an
// empty store each call.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("create and get", func(t *testing.T) {
		s := newStore(t)
		rec := newRecord(base)
		require.NoError(t, s.Create(ctx, rec))

		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, strategy.StatusPending, got.Status)
		assert.Equal(t, 7, got.RiskLevel)
		assert.Equal(t, "0xhash", got.EncryptedHash)
		assert.Nil(t, got.EncryptedScore)
		assert.Nil(t, got.ComputedAt)
		assert.True(t, base.Equal(got.CreatedAt))
	})

	t.Run("duplicate id", func(t *testing.T) {
		s := newStore(t)
		rec := newRecord(base)
		require.NoError(t, s.Create(ctx, rec))
		assert.ErrorIs(t, s.Create(ctx, rec), store.ErrDuplicateID)
	})

	t.Run("unknown id", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.Update(ctx, "missing", func(*strategy.Record) error { return nil })
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		s := newStore(t)
		rec := newRecord(base)
		require.NoError(t, s.Create(ctx, rec))

		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		got.Status = strategy.StatusFailed

		again, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, strategy.StatusPending, again.Status)
	})

	t.Run("update lifecycle", func(t *testing.T) {
		s := newStore(t)
		rec := newRecord(base)
		require.NoError(t, s.Create(ctx, rec))

		updated, err := s.Update(ctx, rec.ID, func(r *strategy.Record) error {
			r.MarkComputing()
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, strategy.StatusComputing, updated.Status)

		at := base.Add(time.Minute)
		updated, err = s.Update(ctx, rec.ID, func(r *strategy.Record) error {
			r.Complete("c2NvcmU=", at)
			return r.SetDecryptedScore(84)
		})
		require.NoError(t, err)
		assert.Equal(t, strategy.StatusCompleted, updated.Status)

		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		require.NoError(t, got.CheckInvariant())
		require.NotNil(t, got.EncryptedScore)
		assert.Equal(t, "c2NvcmU=", *got.EncryptedScore)
		require.NotNil(t, got.ComputedAt)
		assert.True(t, at.Equal(*got.ComputedAt))
		require.NotNil(t, got.DecryptedScore)
		assert.Equal(t, 84, *got.DecryptedScore)
	})

	t.Run("failed update leaves record untouched", func(t *testing.T) {
		s := newStore(t)
		rec := newRecord(base)
		require.NoError(t, s.Create(ctx, rec))

		boom := errors.New("boom")
		_, err := s.Update(ctx, rec.ID, func(r *strategy.Record) error {
			r.MarkFailed()
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, strategy.StatusPending, got.Status)
	})

	t.Run("list ordered by creation", func(t *testing.T) {
		s := newStore(t)
		ids := make([]string, 0, 3)
		for i := 0; i < 3; i++ {
			rec := newRecord(base.Add(time.Duration(2-i) * time.Hour))
			require.NoError(t, s.Create(ctx, rec))
			ids = append([]string{rec.ID}, ids...)
		}

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		for i, rec := range list {
			assert.Equal(t, ids[i], rec.ID)
		}
	})

	t.Run("stats", func(t *testing.T) {
		s := newStore(t)
		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, store.Stats{}, stats)

		a, b := newRecord(base), newRecord(base)
		require.NoError(t, s.Create(ctx, a))
		require.NoError(t, s.Create(ctx, b))

		// computations counts transitions into completed
		compute := func(id string) {
			_, err := s.Update(ctx, id, func(r *strategy.Record) error {
				r.MarkComputing()
				return nil
			})
			require.NoError(t, err)
			_, err = s.Update(ctx, id, func(r *strategy.Record) error {
				r.Complete("eA==", base)
				return nil
			})
			require.NoError(t, err)
		}
		compute(a.ID)
		compute(a.ID)

		_, err = s.Update(ctx, a.ID, func(r *strategy.Record) error {
			return r.SetDecryptedScore(50)
		})
		require.NoError(t, err)

		stats, err = s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, store.Stats{TotalStrategies: 2, TotalComputations: 2}, stats)
	})

	t.Run("concurrent updates are not lost", func(t *testing.T) {
		s := newStore(t)
		rec := newRecord(base)
		require.NoError(t, s.Create(ctx, rec))

		const workers = 8
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Update(ctx, rec.ID, func(r *strategy.Record) error {
					r.EncryptedHash += "x"
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "0xhash"+strings.Repeat("x", workers), got.EncryptedHash)
	})
}
