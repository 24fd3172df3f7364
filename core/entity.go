package core

import (
	"context"
	"strings"
)

type (
	// Record holds the two payloads stored under a caller-assigned id.
	// An empty side has not been uploaded yet.
	Record struct {
		ID           int64  `json:"id"`
		LeftContent  string `json:"leftContent,omitempty"`
		RightContent string `json:"rightContent,omitempty"`
	}

	// DiffResult is computed on every comparison and never persisted.
	DiffResult struct {
		Message     string `json:"message"`
		Length      *int   `json:"length,omitempty"`
		DiffOffsets []int  `json:"diffOffsets,omitempty"`
	}

	// RecordStore is implemented by every storage backend.
	RecordStore interface {
		// FindID returns an error matching ErrRecordNotFound when no record exists.
		FindID(ctx context.Context, id int64) (*Record, error)
		// Save upserts records side by side: a non-empty side replaces the
		// stored one and an empty side leaves it untouched. It returns how many
		// records were written.
		Save(ctx context.Context, records ...Record) (int, error)
	}

	// Session is a unit of work over a RecordStore.
	Session interface {
		// Find is a read-only lookup; the result is not tracked.
		Find(ctx context.Context, id int64) (*Record, error)
		// Load returns a tracked record whose changes are flushed on Commit.
		Load(ctx context.Context, id int64) (*Record, error)
		Add(record *Record)
		Commit(ctx context.Context) (int, error)
		Close() error
	}

	// SessionFactory hands out a fresh Session on every call.
	SessionFactory func() Session
)

// Side selects one of the two payloads of a Record.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// ParseSide accepts "left" or "right", case-insensitively.
func ParseSide(s string) (Side, bool) {
	switch Side(strings.ToLower(s)) {
	case SideLeft:
		return SideLeft, true
	case SideRight:
		return SideRight, true
	}
	return "", false
}

func (s Side) String() string {
	return string(s)
}

// Content returns the payload of the given side.
func (r *Record) Content(side Side) string {
	if side == SideRight {
		return r.RightContent
	}
	return r.LeftContent
}

// Merge copies the non-empty sides of update into r.
func (r *Record) Merge(update Record) {
	if update.LeftContent != "" {
		r.LeftContent = update.LeftContent
	}
	if update.RightContent != "" {
		r.RightContent = update.RightContent
	}
}

// Clone returns a detached copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// IsBlank reports whether s is empty or made only of white space.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
