package memory

import (
	"context"
	"testing"

	"bindiff/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordStore(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore()

	_, err := store.FindID(ctx, 1)
	assert.ErrorIs(t, err, core.ErrRecordNotFound)

	n, err := store.Save(ctx, core.Record{ID: 1, LeftContent: "aaaa"}, core.Record{ID: 2, RightContent: "bbbb"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	record, err := store.FindID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "aaaa", record.LeftContent)

	// Returned records are copies.
	record.LeftContent = "zzzz"
	again, err := store.FindID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "aaaa", again.LeftContent)

	_, err = store.Save(ctx, core.Record{ID: 1, LeftContent: "cccc", RightContent: "dddd"})
	require.NoError(t, err)
	record, err = store.FindID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, core.Record{ID: 1, LeftContent: "cccc", RightContent: "dddd"}, *record)
}

func TestRecordStoreKeepsUnwrittenSide(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore()

	_, err := store.Save(ctx, core.Record{ID: 1, LeftContent: "aaaa", RightContent: "bbbb"})
	require.NoError(t, err)
	_, err = store.Save(ctx, core.Record{ID: 1, RightContent: "cccc"})
	require.NoError(t, err)

	record, err := store.FindID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, core.Record{ID: 1, LeftContent: "aaaa", RightContent: "cccc"}, *record)
}

func TestRecordStoreCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRecordStore().Save(ctx, core.Record{ID: 1, LeftContent: "aaaa"})
	assert.ErrorIs(t, err, context.Canceled)
}
