package storage

import (
	"context"
	"sync"
	"time"

	"github.com/gridpulse/gridpulse/pkg/types"
)

// MemoryProvider implements Database in process memory. It is the default
// provider: the coordinator rebuilds the snapshot within a few minutes of a
// restart anyway, so durable persistence is opt-in.
type MemoryProvider struct {
	mu       sync.Mutex
	snapshot *types.Snapshot
	updated  time.Time
}

// NewMemory creates an empty in-memory provider.
func NewMemory() *MemoryProvider {
	return &MemoryProvider{}
}

// GetLatestSnapshot returns the stored snapshot, or ErrNoSnapshot.
func (m *MemoryProvider) GetLatestSnapshot(ctx context.Context) (*types.Snapshot, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot == nil {
		return nil, time.Time{}, ErrNoSnapshot
	}
	return m.snapshot, m.updated, nil
}

// SaveSnapshot replaces the stored snapshot.
func (m *MemoryProvider) SaveSnapshot(ctx context.Context, snapshot *types.Snapshot, updated time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = snapshot
	m.updated = updated
	return nil
}

// Close is a no-op.
func (m *MemoryProvider) Close() error {
	return nil
}
