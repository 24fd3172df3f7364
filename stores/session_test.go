package stores

import (
	"context"
	"errors"
	"testing"

	"bindiff/core"
	"bindiff/stores/memory"

	"github.com/stretchr/testify/suite"
)

type failingStore struct {
	core.RecordStore
	err error
}

func (s failingStore) Save(context.Context, ...core.Record) (int, error) {
	return 0, s.err
}

// recordingStore keeps the records passed to Save.
type recordingStore struct {
	core.RecordStore
	saved []core.Record
}

func (s *recordingStore) Save(ctx context.Context, records ...core.Record) (int, error) {
	s.saved = append(s.saved, records...)
	return s.RecordStore.Save(ctx, records...)
}

type SessionSuite struct {
	suite.Suite
	ctx   context.Context
	store core.RecordStore
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewRecordStore()
	_, err := s.store.Save(s.ctx, core.Record{ID: 1, LeftContent: "aaaa", RightContent: "bbbb"})
	s.Require().NoError(err)
}

func (s *SessionSuite) TestFindIsNotTracked() {
	session := NewSession(s.store)
	defer session.Close()

	record, err := session.Find(s.ctx, 1)
	s.Require().NoError(err)
	record.LeftContent = "changed"

	n, err := session.Commit(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, n)

	stored, err := s.store.FindID(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal("aaaa", stored.LeftContent)
}

func (s *SessionSuite) TestLoadTracksChanges() {
	session := NewSession(s.store)
	defer session.Close()

	record, err := session.Load(s.ctx, 1)
	s.Require().NoError(err)

	same, err := session.Load(s.ctx, 1)
	s.Require().NoError(err)
	s.Same(record, same)

	record.RightContent = "cccc"
	n, err := session.Commit(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	stored, err := s.store.FindID(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal("cccc", stored.RightContent)
	s.Equal("aaaa", stored.LeftContent)

	// A second commit without further changes writes nothing.
	n, err = session.Commit(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, n)
}

func (s *SessionSuite) TestUnchangedLoadIsNotWritten() {
	session := NewSession(s.store)
	defer session.Close()

	record, err := session.Load(s.ctx, 1)
	s.Require().NoError(err)
	record.LeftContent = "aaaa"

	n, err := session.Commit(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, n)
}

func (s *SessionSuite) TestAddAndCommit() {
	session := NewSession(s.store)
	defer session.Close()

	_, err := session.Load(s.ctx, 2)
	s.ErrorIs(err, core.ErrRecordNotFound)

	session.Add(&core.Record{ID: 2, LeftContent: "dddd"})
	session.Add(nil)
	n, err := session.Commit(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	stored, err := s.store.FindID(s.ctx, 2)
	s.Require().NoError(err)
	s.Equal("dddd", stored.LeftContent)
}

func (s *SessionSuite) TestSessionsAreIsolated() {
	first := NewSession(s.store)
	second := NewSession(s.store)
	defer first.Close()
	defer second.Close()
	s.NotEqual(first.ID(), second.ID())

	record, err := first.Load(s.ctx, 1)
	s.Require().NoError(err)
	record.LeftContent = "first"

	n, err := second.Commit(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, n)

	other, err := second.Load(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal("aaaa", other.LeftContent)
}

func (s *SessionSuite) TestClose() {
	session := NewSession(s.store)
	s.Require().NoError(session.Close())
	s.Require().NoError(session.Close())

	_, err := session.Find(s.ctx, 1)
	s.ErrorIs(err, ErrSessionClosed)
	_, err = session.Load(s.ctx, 1)
	s.ErrorIs(err, ErrSessionClosed)
	_, err = session.Commit(s.ctx)
	s.ErrorIs(err, ErrSessionClosed)
}

func (s *SessionSuite) TestCommitFailureKeepsChangesPending() {
	boom := errors.New("boom")
	session := NewSession(failingStore{RecordStore: s.store, err: boom})
	defer session.Close()

	session.Add(&core.Record{ID: 5, LeftContent: "eeee"})
	_, err := session.Commit(s.ctx)
	s.ErrorIs(err, boom)

	_, err = s.store.FindID(s.ctx, 5)
	s.ErrorIs(err, core.ErrRecordNotFound)
}

func (s *SessionSuite) TestFactoryCreatesFreshSessions() {
	factory := NewSessionFactory(s.store)
	first := factory()
	second := factory()
	s.NotSame(first, second)
}

func (s *SessionSuite) TestCommitWritesOnlyChangedSides() {
	recorder := &recordingStore{RecordStore: s.store}
	session := NewSession(recorder)
	defer session.Close()

	record, err := session.Load(s.ctx, 1)
	s.Require().NoError(err)
	record.RightContent = "cccc"
	session.Add(&core.Record{ID: 2, LeftContent: "dddd"})

	n, err := session.Commit(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)
	s.Equal([]core.Record{
		{ID: 1, RightContent: "cccc"},
		{ID: 2, LeftContent: "dddd"},
	}, recorder.saved)
}

func (s *SessionSuite) TestConcurrentSessionsKeepEachOthersSides() {
	first := NewSession(s.store)
	second := NewSession(s.store)
	defer first.Close()
	defer second.Close()

	left, err := first.Load(s.ctx, 1)
	s.Require().NoError(err)
	right, err := second.Load(s.ctx, 1)
	s.Require().NoError(err)

	left.LeftContent = "new-left"
	right.RightContent = "new-right"

	_, err = first.Commit(s.ctx)
	s.Require().NoError(err)
	_, err = second.Commit(s.ctx)
	s.Require().NoError(err)

	stored, err := s.store.FindID(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(core.Record{ID: 1, LeftContent: "new-left", RightContent: "new-right"}, *stored)
}
