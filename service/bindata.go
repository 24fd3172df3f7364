package service

import (
	"context"
	"errors"
	"time"

	"bindiff/core"
	"bindiff/metrics"

	"github.com/sirupsen/logrus"
)

// BinDataService persists and compares the two sides of a Record.
type BinDataService struct {
	newSession core.SessionFactory
	session    core.Session
	metrics    *metrics.Metrics
}

type Option func(*BinDataService)

// WithMetrics records upsert and comparison outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *BinDataService) {
		s.metrics = m
	}
}

// NewBinDataService keeps one session from factory for reads and asks the
// factory for a new one on every upsert.
func NewBinDataService(factory core.SessionFactory, opts ...Option) *BinDataService {
	s := &BinDataService{
		newSession: factory,
		session:    factory(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the service's own session.
func (s *BinDataService) Close() error {
	return s.session.Close()
}

// Upsert writes content to one side of the record identified by id.
func (s *BinDataService) Upsert(ctx context.Context, id int64, side core.Side, content string) error {
	data := core.Record{ID: id}
	switch side {
	case core.SideLeft:
		data.LeftContent = content
	case core.SideRight:
		data.RightContent = content
	default:
		return core.NewError(core.KindInvalidArgument, msgInvalidSide)
	}
	return s.UpsertRecord(ctx, data)
}

// UpsertRecord creates the record when it does not exist, otherwise overwrites
// only the sides of data that are not blank.
func (s *BinDataService) UpsertRecord(ctx context.Context, data core.Record) (err error) {
	side := sideLabel(data)
	defer func() {
		s.metrics.ObserveUpsert(side, outcome(err))
	}()

	if err := validateUpsert(data); err != nil {
		return err
	}

	ctx, sc := s.beginScope(ctx)
	defer sc.Release()
	session := s.activeSession(ctx)

	log := logrus.WithFields(logrus.Fields{
		"record_id": data.ID,
		"side":      side,
		"scope_id":  sc.id,
	})

	existing, err := session.Load(ctx, data.ID)
	switch {
	case errors.Is(err, core.ErrRecordNotFound):
		session.Add(&core.Record{
			ID:           data.ID,
			LeftContent:  nonBlank(data.LeftContent),
			RightContent: nonBlank(data.RightContent),
		})
	case err != nil:
		log.WithField("error", err).Error("Failed to load record")
		return core.WrapError(err, core.KindStoreFailure, msgLoadFailed, data.ID)
	default:
		if !core.IsBlank(data.LeftContent) {
			existing.LeftContent = data.LeftContent
		}
		if !core.IsBlank(data.RightContent) {
			existing.RightContent = data.RightContent
		}
	}

	start := time.Now()
	affected, err := session.Commit(ctx)
	s.metrics.ObserveCommit(start)
	if err != nil {
		log.WithField("error", err).Error("Failed to save record")
		return core.WrapError(err, core.KindStoreFailure, msgSaveFailed, data.ID)
	}

	log.WithField("affected", affected).Info("Record upserted")
	return nil
}

// Compare reports how the left and right payloads of record id differ.
func (s *BinDataService) Compare(ctx context.Context, id int64) (result *core.DiffResult, err error) {
	defer func() {
		s.metrics.ObserveComparison(comparisonOutcome(result, err))
	}()

	record, err := s.activeSession(ctx).Find(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrRecordNotFound) {
			return nil, core.WrapError(err, core.KindNotFound, msgNotFound, id)
		}
		logrus.WithFields(logrus.Fields{
			"record_id": id,
			"error":     err,
		}).Error("Failed to load record")
		return nil, core.WrapError(err, core.KindStoreFailure, msgLoadFailed, id)
	}

	if err := validateComparison(record); err != nil {
		return nil, err
	}

	left, err := core.DecodeBase64(record.LeftContent)
	if err != nil {
		return nil, core.WrapError(err, core.KindInvalidArgument, msgInvalidBase64)
	}
	right, err := core.DecodeBase64(record.RightContent)
	if err != nil {
		return nil, core.WrapError(err, core.KindInvalidArgument, msgInvalidBase64)
	}

	return core.Diff(left, right), nil
}

func nonBlank(s string) string {
	if core.IsBlank(s) {
		return ""
	}
	return s
}

func sideLabel(data core.Record) string {
	left, right := !core.IsBlank(data.LeftContent), !core.IsBlank(data.RightContent)
	switch {
	case left && right:
		return "both"
	case left:
		return core.SideLeft.String()
	case right:
		return core.SideRight.String()
	}
	return "none"
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return core.KindOf(err).String()
}

func comparisonOutcome(result *core.DiffResult, err error) string {
	if err != nil {
		return core.KindOf(err).String()
	}
	switch result.Message {
	case core.MessageSame:
		return "same"
	case core.MessageDifferentSize:
		return "different_size"
	}
	return "different_content"
}
