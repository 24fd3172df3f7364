package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"bindiff/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Writes to ids sharing a stripe are serialized.
const lockStripes = 64

type recordStore struct {
	basePath string // Directory where records are stored.
	locks    [lockStripes]sync.Mutex
}

func NewRecordStore(basePath string) (core.RecordStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &recordStore{basePath: basePath}, nil
}

func (s *recordStore) path(id int64) string {
	return filepath.Join(s.basePath, strconv.FormatInt(id, 10)+".json")
}

func (s *recordStore) lockFor(id int64) *sync.Mutex {
	return &s.locks[uint64(id)%lockStripes]
}

func (s *recordStore) FindID(ctx context.Context, id int64) (*core.Record, error) {
	filePath := s.path(id)
	log := logrus.WithFields(logrus.Fields{
		"record_id": id,
		"file_path": filePath,
	})

	log.Debug("Retrieving record by ID")
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("record with id %d: %w", id, core.ErrRecordNotFound)
		}
		log.WithField("error", err).Error("Failed to retrieve record")
		return nil, err
	}

	var record core.Record
	if err := json.Unmarshal(data, &record); err != nil {
		log.WithField("error", err).Error("Failed to decode record")
		return nil, fmt.Errorf("decode record %d: %w", id, err)
	}
	record.ID = id
	return &record, nil
}

// Save merges each record into the stored one and writes the result to a
// temporary file that is renamed into place, so readers never observe a
// partially written record.
func (s *recordStore) Save(ctx context.Context, records ...core.Record) (int, error) {
	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := s.merge(ctx, record); err != nil {
			return i, err
		}
	}
	return len(records), nil
}

func (s *recordStore) merge(ctx context.Context, update core.Record) error {
	mu := s.lockFor(update.ID)
	mu.Lock()
	defer mu.Unlock()

	record, err := s.FindID(ctx, update.ID)
	switch {
	case errors.Is(err, core.ErrRecordNotFound):
		record = &core.Record{ID: update.ID}
	case err != nil:
		return err
	}
	record.Merge(update)
	return s.write(*record)
}

func (s *recordStore) write(record core.Record) error {
	filePath := s.path(record.ID)
	log := logrus.WithFields(logrus.Fields{
		"record_id": record.ID,
		"file_path": filePath,
	})

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record %d: %w", record.ID, err)
	}

	tmpPath := filepath.Join(s.basePath, "."+ulid.Make().String()+".tmp")
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		log.WithField("error", err).Error("Failed to write record")
		return err
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		log.WithField("error", err).Error("Failed to write record")
		return err
	}

	log.Debug("Record written successfully")
	return nil
}
