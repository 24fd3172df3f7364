package stores

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"bindiff/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// ErrSessionClosed is returned by every Session method once Close has run.
var ErrSessionClosed = errors.New("session is closed")

type tracked struct {
	record   *core.Record
	snapshot core.Record
}

// changes returns the record reduced to the sides that differ from the
// snapshot. A side cleared to empty is not reported.
func (t *tracked) changes() (core.Record, bool) {
	update := core.Record{ID: t.record.ID}
	if t.record.LeftContent != t.snapshot.LeftContent {
		update.LeftContent = t.record.LeftContent
	}
	if t.record.RightContent != t.snapshot.RightContent {
		update.RightContent = t.record.RightContent
	}
	return update, update.LeftContent != "" || update.RightContent != ""
}

// Session tracks records loaded or added through it and flushes the changed
// sides to the backing store on Commit. Sides the session did not change are
// never written, so concurrent sessions updating different sides of one record
// do not overwrite each other.
type Session struct {
	id    string
	store core.RecordStore

	mu      sync.Mutex
	tracked map[int64]*tracked
	closed  bool
}

// NewSessionFactory returns a factory producing independent sessions over store.
func NewSessionFactory(store core.RecordStore) core.SessionFactory {
	return func() core.Session {
		return NewSession(store)
	}
}

func NewSession(store core.RecordStore) *Session {
	return &Session{
		id:      ulid.Make().String(),
		store:   store,
		tracked: make(map[int64]*tracked),
	}
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) Find(ctx context.Context, id int64) (*core.Record, error) {
	if s.isClosed() {
		return nil, ErrSessionClosed
	}
	record, err := s.store.FindID(ctx, id)
	if err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

func (s *Session) Load(ctx context.Context, id int64) (*core.Record, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if t, ok := s.tracked[id]; ok {
		s.mu.Unlock()
		return t.record, nil
	}
	s.mu.Unlock()

	record, err := s.store.FindID(ctx, id)
	if err != nil {
		return nil, err
	}
	record = record.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tracked[id]; ok {
		return t.record, nil
	}
	s.tracked[id] = &tracked{record: record, snapshot: *record}
	return record, nil
}

func (s *Session) Add(record *core.Record) {
	if record == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.tracked[record.ID] = &tracked{record: record, snapshot: core.Record{ID: record.ID}}
}

// Commit writes the changed sides of every added or loaded record. Nothing is
// written when no tracked record changed.
func (s *Session) Commit(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrSessionClosed
	}
	var (
		pending []*tracked
		records []core.Record
	)
	for _, t := range s.tracked {
		if update, ok := t.changes(); ok {
			pending = append(pending, t)
			records = append(records, update)
		}
	}
	s.mu.Unlock()

	if len(records) == 0 {
		return 0, nil
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	log := logrus.WithFields(logrus.Fields{
		"session_id": s.id,
		"records":    len(records),
	})
	affected, err := s.store.Save(ctx, records...)
	if err != nil {
		log.WithField("error", err).Error("Failed to commit session")
		return 0, fmt.Errorf("commit session %s: %w", s.id, err)
	}

	s.mu.Lock()
	for _, t := range pending {
		t.snapshot = *t.record
	}
	s.mu.Unlock()

	log.WithField("affected", affected).Debug("Session committed")
	return affected, nil
}

// Close discards tracked state. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.tracked = nil
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
