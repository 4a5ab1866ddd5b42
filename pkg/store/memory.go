package store

import (
	"context"
	"sync"

	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/network"
)

// MemoryStore keeps records in process memory. Records are copied on the way
// in and out, so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*network.Research
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*network.Research)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*network.Research, error) {
	if err := errors.ValidateID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, notFound(id)
	}
	return copyResearch(r), nil
}

func (s *MemoryStore) Put(ctx context.Context, r *network.Research) error {
	if err := prepare(r); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[r.ID] = copyResearch(r)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*network.Research, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*network.Research, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, copyResearch(r))
	}
	sortNewest(out)
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func copyResearch(r *network.Research) *network.Research {
	out := *r
	if r.Analysis != nil {
		out.Analysis = &network.Analysis{Algorithm: r.Analysis.Algorithm}
		out.SetGraph(r.Graph())
	}
	return &out
}

var _ Store = (*MemoryStore)(nil)
