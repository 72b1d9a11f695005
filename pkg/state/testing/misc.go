package testing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
)

func (suite *StoreTestSuite) testGeometry(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.Geometry(testContext())
	assert.ErrorIs(t, err, state.ErrNoGeometry)

	g := state.Geometry{BlockSize: 4096, TotalBlocks: 1 << 20, RootInode: 5}
	require.NoError(t, store.SetGeometry(testContext(), g))

	got, err := store.Geometry(testContext())
	require.NoError(t, err)
	assert.Equal(t, g, got)
}

func (suite *StoreTestSuite) testRuns(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.LastRun(testContext())
	assert.ErrorIs(t, err, state.ErrNoRun)

	first := state.RunRecord{ID: uuid.New(), Started: time.Unix(100, 0).UTC(), Blocks: 3}
	second := state.RunRecord{
		ID:      uuid.New(),
		Started: time.Unix(200, 0).UTC(),
		Blocks:  7,
		Fixes:   map[string]int64{"DIRENT_TYPE": 2},
		Changed: true,
	}
	require.NoError(t, store.SaveRun(testContext(), first))
	require.NoError(t, store.SaveRun(testContext(), second))

	last, err := store.LastRun(testContext())
	require.NoError(t, err)
	assert.Equal(t, second.ID, last.ID)
	assert.Equal(t, uint64(7), last.Blocks)
	assert.True(t, last.Changed)
	assert.Equal(t, int64(2), last.Fixes["DIRENT_TYPE"])
	assert.True(t, second.Started.Equal(last.Started))
}

func (suite *StoreTestSuite) testHealthcheck(t *testing.T) {
	store := suite.NewStore(t)
	assert.NoError(t, store.Healthcheck(testContext()))
}
