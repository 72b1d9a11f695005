package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
)

// RunParentTests executes all ParentTable tests.
func (suite *StoreTestSuite) RunParentTests(t *testing.T) {
	t.Run("LookupMissing", func(t *testing.T) {
		store := suite.NewStore(t)
		_, err := store.LookupParent(testContext(), 42)
		assert.ErrorIs(t, err, state.ErrNoParent)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		store := suite.NewStore(t)
		err := store.UpdateParent(testContext(), 42, state.DirParent{Dirent: 1})
		assert.ErrorIs(t, err, state.ErrNoParent)
	})

	t.Run("AddLookupUpdate", func(t *testing.T) {
		store := suite.NewStore(t)
		require.NoError(t, store.AddParent(testContext(), 42))

		p, err := store.LookupParent(testContext(), 42)
		require.NoError(t, err)
		assert.Equal(t, state.DirParent{}, p)

		require.NoError(t, store.UpdateParent(testContext(), 42, state.DirParent{Dirent: 5, DotDot: 9}))
		p, err = store.LookupParent(testContext(), 42)
		require.NoError(t, err)
		assert.Equal(t, state.DirParent{Dirent: 5, DotDot: 9}, p)
	})

	t.Run("AddIsIdempotent", func(t *testing.T) {
		store := suite.NewStore(t)
		require.NoError(t, store.AddParent(testContext(), 42))
		require.NoError(t, store.UpdateParent(testContext(), 42, state.DirParent{Dirent: 5}))
		require.NoError(t, store.AddParent(testContext(), 42))

		p, err := store.LookupParent(testContext(), 42)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), p.Dirent)
	})

	t.Run("ListSorted", func(t *testing.T) {
		store := suite.NewStore(t)
		for _, ino := range []uint64{90, 5, 33} {
			require.NoError(t, store.AddParent(testContext(), ino))
		}
		require.NoError(t, store.UpdateParent(testContext(), 33, state.DirParent{Dirent: 5}))

		list, err := store.ListParents(testContext())
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, uint64(5), list[0].Ino)
		assert.Equal(t, uint64(33), list[1].Ino)
		assert.Equal(t, uint64(5), list[1].Parent.Dirent)
		assert.Equal(t, uint64(90), list[2].Ino)
	})
}
