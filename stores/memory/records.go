package memory

import (
	"context"
	"fmt"
	"sync"

	"bindiff/core"
)

type recordStore struct {
	mu      sync.RWMutex
	records map[int64]core.Record
}

func NewRecordStore() core.RecordStore {
	return &recordStore{records: make(map[int64]core.Record)}
}

func (s *recordStore) FindID(ctx context.Context, id int64) (*core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if val, ok := s.records[id]; ok {
		return &val, nil
	}
	return nil, fmt.Errorf("record with id %d: %w", id, core.ErrRecordNotFound)
}

func (s *recordStore) Save(ctx context.Context, records ...core.Record) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		stored := s.records[record.ID]
		stored.ID = record.ID
		stored.Merge(record)
		s.records[record.ID] = stored
	}
	return len(records), nil
}
