package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bindiff/core"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Ids are assigned by callers, so the key is a plain BIGINT rather than a sequence.
const schema = `CREATE TABLE IF NOT EXISTS bin_data (
	id            BIGINT PRIMARY KEY,
	left_content  TEXT NULL,
	right_content TEXT NULL
)`

// Empty sides are bound as NULL and keep the stored value.
const upsertRecord = `INSERT INTO bin_data (id, left_content, right_content) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET
	left_content  = COALESCE(EXCLUDED.left_content, bin_data.left_content),
	right_content = COALESCE(EXCLUDED.right_content, bin_data.right_content)`

// RecordStore persists records in PostgreSQL.
type RecordStore struct {
	db *sql.DB
}

// Open connects to dsn, verifies the connection and ensures the table exists.
func Open(ctx context.Context, dsn string) (*RecordStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	store := New(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an existing connection pool. The caller owns db.
func New(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

// Migrate creates the bin_data table when missing.
func (s *RecordStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *RecordStore) FindID(ctx context.Context, id int64) (*core.Record, error) {
	var left, right sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT left_content, right_content FROM bin_data WHERE id = $1", id).Scan(&left, &right)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("record with id %d: %w", id, core.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("find record %d: %w", id, err)
	}
	return &core.Record{ID: id, LeftContent: left.String, RightContent: right.String}, nil
}

func (s *RecordStore) Save(ctx context.Context, records ...core.Record) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	affected := 0
	for _, record := range records {
		res, err := tx.ExecContext(ctx, upsertRecord, record.ID, nullable(record.LeftContent), nullable(record.RightContent))
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"record_id": record.ID,
				"error":     err,
			}).Error("Failed to save record")
			return 0, fmt.Errorf("save record %d: %w", record.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			affected++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return affected, nil
}

// Close closes the underlying connection pool.
func (s *RecordStore) Close() error {
	return s.db.Close()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
