package searchcache

import (
	"context"
	"time"

	"github.com/kailas-cloud/recipegate/internal/db"
	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	domretrieval "github.com/kailas-cloud/recipegate/internal/domain/retrieval"
)

type mockSearcher struct {
	docs  []candidate.Document
	err   error
	calls int
}

func (m *mockSearcher) Search(_ context.Context, _ string, _ domretrieval.Params) ([]candidate.Document, error) {
	m.calls++
	return m.docs, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}
