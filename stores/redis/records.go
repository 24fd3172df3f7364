package redis

import (
	"context"
	"fmt"
	"strconv"

	"bindiff/core"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "bindata:"
	fieldLeft  = "left"
	fieldRight = "right"
)

// RecordStore keeps every record in a hash with one field per populated side.
type RecordStore struct {
	client *redis.Client
}

// Open parses url, connects and pings the server.
func Open(ctx context.Context, url string) (*RecordStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return New(client), nil
}

func New(client *redis.Client) *RecordStore {
	return &RecordStore{client: client}
}

func key(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}

func (s *RecordStore) FindID(ctx context.Context, id int64) (*core.Record, error) {
	fields, err := s.client.HGetAll(ctx, key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("find record %d: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("record with id %d: %w", id, core.ErrRecordNotFound)
	}
	return &core.Record{
		ID:           id,
		LeftContent:  fields[fieldLeft],
		RightContent: fields[fieldRight],
	}, nil
}

// Save writes the populated sides of all records inside a MULTI/EXEC block.
// Fields of empty sides are left as they are.
func (s *RecordStore) Save(ctx context.Context, records ...core.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, record := range records {
			values := map[string]any{}
			if record.LeftContent != "" {
				values[fieldLeft] = record.LeftContent
			}
			if record.RightContent != "" {
				values[fieldRight] = record.RightContent
			}
			if len(values) > 0 {
				pipe.HSet(ctx, key(record.ID), values)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("save records: %w", err)
	}
	return len(records), nil
}

func (s *RecordStore) Close() error {
	return s.client.Close()
}
