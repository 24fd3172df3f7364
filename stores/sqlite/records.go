package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bindiff/core"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

const schema = `CREATE TABLE IF NOT EXISTS bin_data (
	id            INTEGER PRIMARY KEY,
	left_content  TEXT NULL,
	right_content TEXT NULL
);`

// Empty sides are bound as NULL and keep the stored value.
const upsertRecord = `INSERT INTO bin_data (id, left_content, right_content) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	left_content  = COALESCE(excluded.left_content, bin_data.left_content),
	right_content = COALESCE(excluded.right_content, bin_data.right_content)`

type recordStore struct {
	db *sql.DB
}

// NewRecordStore opens the database at dataSourceName and creates the table
// when it does not exist yet.
func NewRecordStore(dataSourceName string) (core.RecordStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &recordStore{db}, nil
}

func (s *recordStore) FindID(ctx context.Context, id int64) (*core.Record, error) {
	log := logrus.WithField("record_id", id)
	log.Debug("Retrieving record by ID")

	var left, right sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT left_content, right_content FROM bin_data WHERE id = ?", id).Scan(&left, &right)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("record with id %d: %w", id, core.ErrRecordNotFound)
		}
		log.WithField("error", err).Error("Failed to retrieve record")
		return nil, err
	}
	return &core.Record{ID: id, LeftContent: left.String, RightContent: right.String}, nil
}

func (s *recordStore) Save(ctx context.Context, records ...core.Record) (int, error) {
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

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
