package store

import (
	"context"
	"sort"
	"sync"

	"github.com/CamberLoid/FHEVault/internal/strategy"
)

// Memory 进程内存储，进程退出即丢失
type Memory struct {
	mu           sync.RWMutex
	strategies   map[string]*strategy.Record
	computations int
}

func NewMemory() *Memory {
	return &Memory{strategies: make(map[string]*strategy.Record)}
}

func (m *Memory) Create(ctx context.Context, rec *strategy.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.strategies[rec.ID]; ok {
		return ErrDuplicateID
	}
	m.strategies[rec.ID] = rec.Clone()
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*strategy.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.strategies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// List 按创建时间排序
func (m *Memory) List(ctx context.Context) ([]*strategy.Record, error) {
	m.mu.RLock()
	out := make([]*strategy.Record, 0, len(m.strategies))
	for _, rec := range m.strategies {
		out = append(out, rec.Clone())
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) Update(ctx context.Context, id string, fn UpdateFunc) (*strategy.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.strategies[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if next.Status == strategy.StatusCompleted && cur.Status != strategy.StatusCompleted {
		m.computations++
	}
	m.strategies[id] = next
	return next.Clone(), nil
}

func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{TotalStrategies: len(m.strategies), TotalComputations: m.computations}, nil
}

func (m *Memory) Close() error { return nil }
