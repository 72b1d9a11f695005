package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
)

// RunDirBlockTests executes all DirBlockEnumerator tests.
func (suite *StoreTestSuite) RunDirBlockTests(t *testing.T) {
	t.Run("EmptyStore", func(t *testing.T) {
		store := suite.NewStore(t)
		dirs, err := store.Directories(testContext())
		require.NoError(t, err)
		assert.Empty(t, dirs)
	})

	t.Run("OrderedEnumeration", func(t *testing.T) {
		store := suite.NewStore(t)
		seedBlocks(t, store)

		dirs, err := store.Directories(testContext())
		require.NoError(t, err)
		assert.Equal(t, []uint64{5, 20}, dirs)

		got := collect(t, store, 5, -1)
		assert.Equal(t, []state.DirBlockEntry{
			{Ino: 5, Blkcount: 0, Blkno: 100},
			{Ino: 5, Blkcount: 1, Blkno: 101},
			{Ino: 5, Blkcount: 2, Blkno: 250},
		}, got)
	})

	t.Run("AbortStopsDirectory", func(t *testing.T) {
		store := suite.NewStore(t)
		seedBlocks(t, store)

		got := collect(t, store, 5, 1)
		assert.Len(t, got, 1)

		// Another directory is unaffected by the earlier abort.
		got = collect(t, store, 20, -1)
		assert.Len(t, got, 1)
	})

	t.Run("VisitorErrorPropagates", func(t *testing.T) {
		store := suite.NewStore(t)
		seedBlocks(t, store)

		boom := errors.New("boom")
		err := store.IterateDirBlocks(testContext(), 5, func(ctx context.Context, dbe state.DirBlockEntry) (state.IterAction, error) {
			return state.IterContinue, boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("ReplaceBlock", func(t *testing.T) {
		store := suite.NewStore(t)
		seedBlocks(t, store)
		require.NoError(t, store.AddDirBlock(testContext(), state.DirBlockEntry{Ino: 20, Blkcount: 0, Blkno: 999}))

		got := collect(t, store, 20, -1)
		assert.Equal(t, []state.DirBlockEntry{{Ino: 20, Blkcount: 0, Blkno: 999}}, got)
	})
}

func seedBlocks(t *testing.T, store Store) {
	t.Helper()
	entries := []state.DirBlockEntry{
		{Ino: 20, Blkcount: 0, Blkno: 300},
		{Ino: 5, Blkcount: 2, Blkno: 250},
		{Ino: 5, Blkcount: 0, Blkno: 100},
		{Ino: 5, Blkcount: 1, Blkno: 101},
	}
	for _, dbe := range entries {
		require.NoError(t, store.AddDirBlock(testContext(), dbe))
	}
}

// collect enumerates dirIno, aborting after limit blocks when limit >= 0.
func collect(t *testing.T, store Store, dirIno uint64, limit int) []state.DirBlockEntry {
	t.Helper()
	var got []state.DirBlockEntry
	err := store.IterateDirBlocks(testContext(), dirIno, func(ctx context.Context, dbe state.DirBlockEntry) (state.IterAction, error) {
		got = append(got, dbe)
		if limit >= 0 && len(got) >= limit {
			return state.IterAbort, nil
		}
		return state.IterContinue, nil
	})
	require.NoError(t, err)
	return got
}
