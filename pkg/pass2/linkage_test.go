package pass2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/ocfs2"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/problem"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
)

func TestFixLinkage_FirstClaimWins(t *testing.T) {
	tests := []struct {
		name        string
		mode        problem.Mode
		wantSevered bool
	}{
		{name: "default keeps second claim", mode: problem.ModePreen, wantSevered: false},
		{name: "yes severs second claim", mode: problem.ModeYes, wantSevered: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.mode)
			f.addDir(10)
			f.addDir(11)
			f.addDir(30)
			c := f.checker()

			first := make([]byte, testBlockSize)
			layout(first, ent{ino: 30, ft: ocfs2.FileTypeDir, name: "sub"})
			w1 := walk(state.DirBlockEntry{Ino: 10, Blkcount: 1, Blkno: 21}, first)
			require.NoError(t, c.fixLinkage(f.ctx, w1, 0))
			assert.Equal(t, uint64(10), f.parent(30).Dirent)
			assert.Empty(t, f.resolver.Asked)

			second := make([]byte, testBlockSize)
			layout(second, ent{ino: 30, ft: ocfs2.FileTypeDir, name: "sub"})
			w2 := walk(state.DirBlockEntry{Ino: 11, Blkcount: 1, Blkno: 22}, second)
			require.NoError(t, c.fixLinkage(f.ctx, w2, 0))

			assert.Equal(t, []problem.Kind{problem.DuplicateParent}, f.resolver.Asked)
			assert.Equal(t, uint64(10), f.parent(30).Dirent)
			assert.Equal(t, uint64(30), ocfs2.EntryAt(w1.buf, 0).Inode())
			if tt.wantSevered {
				assert.Equal(t, uint64(0), ocfs2.EntryAt(w2.buf, 0).Inode())
			} else {
				assert.Equal(t, uint64(30), ocfs2.EntryAt(w2.buf, 0).Inode())
			}
		})
	}
}

func TestFixLinkage_Skips(t *testing.T) {
	f := newFixture(t, problem.ModeYes)
	f.addDir(10)
	f.addFile(12)
	c := f.checker()

	t.Run("dot positions", func(t *testing.T) {
		block := make([]byte, testBlockSize)
		dirBlock0(block, 10, testRoot)
		w := walk(state.DirBlockEntry{Ino: 10, Blkno: 20}, block)

		require.NoError(t, c.fixLinkage(f.ctx, w, 0))
		require.NoError(t, c.fixLinkage(f.ctx, w, 16))
		assert.Equal(t, uint64(0), f.parent(10).Dirent)
	})

	t.Run("non directories", func(t *testing.T) {
		block := make([]byte, testBlockSize)
		layout(block, ent{ino: 12, ft: ocfs2.FileTypeRegular, name: "file"})
		w := walk(state.DirBlockEntry{Ino: 10, Blkcount: 1, Blkno: 21}, block)

		require.NoError(t, c.fixLinkage(f.ctx, w, 0))
		assert.Empty(t, f.resolver.Asked)
	})

	t.Run("repeat claim from the same directory", func(t *testing.T) {
		f.addDir(31)
		block := make([]byte, testBlockSize)
		layout(block,
			ent{ino: 31, ft: ocfs2.FileTypeDir, name: "a"},
			ent{ino: 31, ft: ocfs2.FileTypeDir, name: "b"})
		w := walk(state.DirBlockEntry{Ino: 10, Blkcount: 1, Blkno: 21}, block)

		require.NoError(t, c.fixLinkage(f.ctx, w, 0))
		require.NoError(t, c.fixLinkage(f.ctx, w, 16))
		assert.Equal(t, uint64(31), ocfs2.EntryAt(w.buf, 16).Inode())
		assert.Empty(t, f.resolver.Asked)
	})
}

func TestFixLinkage_MissingParentRecordIsFatal(t *testing.T) {
	f := newFixture(t, problem.ModeYes)
	f.set(state.UsedInodes, 30)
	f.set(state.DirInodes, 30)
	c := f.checker()

	block := make([]byte, testBlockSize)
	layout(block, ent{ino: 30, ft: ocfs2.FileTypeDir, name: "sub"})
	w := walk(state.DirBlockEntry{Ino: 10, Blkcount: 1, Blkno: 21}, block)

	code, ok := IsFatal(c.fixLinkage(f.ctx, w, 0))
	require.True(t, ok)
	assert.Equal(t, ErrInternalFailure, code)
}

// Across any number of directories pointing at one subdirectory, only the
// first keeps its entry when every repair is accepted.
func TestRun_OneClaimantSurvives(t *testing.T) {
	f := newFixture(t, problem.ModeYes)
	f.addDir(testRoot, 40)
	f.addDir(30, 41)
	dirs := []uint64{10, 11, 12, 13}
	for i, dir := range dirs {
		f.addDir(dir, uint64(42+i))
		dirBlock0(f.block(uint64(42+i)), dir, testRoot,
			ent{ino: 30, ft: ocfs2.FileTypeDir, name: "sub"})
	}
	dirBlock0(f.block(40), testRoot, testRoot)
	dirBlock0(f.block(41), 30, 10)

	_, err := f.run()
	require.NoError(t, err)

	assert.Equal(t, uint64(10), f.parent(30).Dirent)
	survivors := 0
	for i := range dirs {
		for _, e := range entries(f.block(uint64(42 + i))) {
			if e.Name == "sub" && e.Ino == 30 {
				survivors++
			}
		}
	}
	assert.Equal(t, 1, survivors)
}
