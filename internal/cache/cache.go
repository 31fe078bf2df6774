// Package cache persists summary artifacts keyed by period. The store is the
// sole owner of artifact storage: artifacts are written atomically per key,
// replaced whole on recomputation, and never deleted by the summary pipeline.
package cache

import (
	"context"
	"sync"

	"yourbody/internal/core"
)

// Store is the keyed artifact map the summary orchestrator reads and writes.
// Implementations must tolerate concurrent readers and writers without ever
// exposing a partially written artifact.
type Store interface {
	// Get returns the most recent artifact for key, if any.
	Get(ctx context.Context, key core.PeriodKey) (core.SummaryArtifact, bool, error)
	// Put upserts the artifact under its own key. Writes are last-write-wins
	// by GeneratedAt: an older artifact never overwrites a newer one.
	Put(ctx context.Context, artifact core.SummaryArtifact) error
}

// MemoryStore is a process-local Store used in tests and single-shot CLI runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]core.SummaryArtifact
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]core.SummaryArtifact)}
}

// Get returns the stored artifact for key.
func (m *MemoryStore) Get(_ context.Context, key core.PeriodKey) (core.SummaryArtifact, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	artifact, ok := m.entries[key.String()]
	return artifact, ok, nil
}

// Put stores artifact unless a newer one is already present.
func (m *MemoryStore) Put(_ context.Context, artifact core.SummaryArtifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := artifact.Key.String()
	if existing, ok := m.entries[k]; ok && existing.GeneratedAt.After(artifact.GeneratedAt) {
		return nil
	}
	m.entries[k] = artifact
	return nil
}

// Len reports the number of cached artifacts.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
