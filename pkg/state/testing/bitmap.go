package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
)

// RunBitmapTests executes all Oracle tests.
func (suite *StoreTestSuite) RunBitmapTests(t *testing.T) {
	t.Run("TestEmpty", func(t *testing.T) {
		store := suite.NewStore(t)
		for _, bm := range state.Bitmaps {
			member, err := store.Test(testContext(), bm, 12)
			require.NoError(t, err)
			assert.False(t, member, "bitmap %s", bm)
		}
	})

	t.Run("SetThenTest", func(t *testing.T) {
		store := suite.NewStore(t)

		was, err := store.Set(testContext(), state.DirInodes, 12)
		require.NoError(t, err)
		assert.False(t, was)

		was, err = store.Set(testContext(), state.DirInodes, 12)
		require.NoError(t, err)
		assert.True(t, was)

		member, err := store.Test(testContext(), state.DirInodes, 12)
		require.NoError(t, err)
		assert.True(t, member)

		// Bitmaps are independent.
		member, err = store.Test(testContext(), state.RegInodes, 12)
		require.NoError(t, err)
		assert.False(t, member)
	})

	t.Run("MembersSorted", func(t *testing.T) {
		store := suite.NewStore(t)
		for _, ino := range []uint64{300, 7, 1 << 40, 12} {
			_, err := store.Set(testContext(), state.UsedInodes, ino)
			require.NoError(t, err)
		}

		members, err := store.Members(testContext(), state.UsedInodes)
		require.NoError(t, err)
		assert.Equal(t, []uint64{7, 12, 300, 1 << 40}, members)

		members, err = store.Members(testContext(), state.BadInodes)
		require.NoError(t, err)
		assert.Empty(t, members)
	})

	t.Run("UnknownBitmap", func(t *testing.T) {
		store := suite.NewStore(t)
		_, err := store.Test(testContext(), state.Bitmap(99), 1)
		assert.ErrorIs(t, err, state.ErrUnknownBitmap)
		_, err = store.Set(testContext(), state.Bitmap(0), 1)
		assert.ErrorIs(t, err, state.ErrUnknownBitmap)
	})
}
