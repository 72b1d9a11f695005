package pass2

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/ocfs2"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/problem"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
)

func TestFixFiletype(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *fixture)
		stored    ocfs2.FileType
		want      ocfs2.FileType
		wantAsked []problem.Kind
	}{
		{
			name:      "regular file tagged as directory",
			setup:     func(f *fixture) { f.addFile(11) },
			stored:    ocfs2.FileTypeDir,
			want:      ocfs2.FileTypeRegular,
			wantAsked: []problem.Kind{problem.BadFileType},
		},
		{
			name:   "directory tagged correctly",
			setup:  func(f *fixture) { f.addDir(11) },
			stored: ocfs2.FileTypeDir,
			want:   ocfs2.FileTypeDir,
		},
		{
			name: "bad inode expects unknown",
			setup: func(f *fixture) {
				f.set(state.UsedInodes, 11)
				f.set(state.BadInodes, 11)
			},
			stored:    ocfs2.FileTypeRegular,
			want:      ocfs2.FileTypeUnknown,
			wantAsked: []problem.Kind{problem.BadFileType},
		},
		{
			name: "symlink read from the inode",
			setup: func(f *fixture) {
				f.set(state.UsedInodes, 11)
				ocfs2.EncodeInodeHeader(f.block(11), ocfs2.InodeHeader{Mode: 0o120777})
			},
			stored:    ocfs2.FileTypeRegular,
			want:      ocfs2.FileTypeSymlink,
			wantAsked: []problem.Kind{problem.BadFileType},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, problem.ModePreen)
			tt.setup(f)
			c := f.checker()

			block := make([]byte, testBlockSize)
			layout(block, ent{ino: 11, ft: tt.stored, name: "entry"})
			w := walk(state.DirBlockEntry{Ino: 10, Blkcount: 1, Blkno: 21}, block)

			require.NoError(t, c.fixFiletype(f.ctx, w, 0))
			assert.Equal(t, tt.want, ocfs2.EntryAt(w.buf, 0).FileType())
			assert.Equal(t, tt.wantAsked, f.resolver.Asked)
		})
	}
}

func TestFixFiletype_InodeReadFailureIsFatal(t *testing.T) {
	f := newFixture(t, problem.ModePreen)
	f.set(state.UsedInodes, 11)
	boom := errors.New("media error")
	f.dev.FailRead(11, boom)
	c := f.checker()

	block := make([]byte, testBlockSize)
	layout(block, ent{ino: 11, ft: ocfs2.FileTypeRegular, name: "entry"})
	w := walk(state.DirBlockEntry{Ino: 10, Blkcount: 1, Blkno: 21}, block)

	err := c.fixFiletype(f.ctx, w, 0)
	code, ok := IsFatal(err)
	require.True(t, ok)
	assert.Equal(t, ErrInodeRead, code)
	assert.ErrorIs(t, err, boom)
}

func TestFixFiletype_BadSignatureIsFatal(t *testing.T) {
	f := newFixture(t, problem.ModePreen)
	f.set(state.UsedInodes, 11)
	c := f.checker()

	block := make([]byte, testBlockSize)
	layout(block, ent{ino: 11, ft: ocfs2.FileTypeRegular, name: "entry"})
	w := walk(state.DirBlockEntry{Ino: 10, Blkcount: 1, Blkno: 21}, block)

	err := c.fixFiletype(f.ctx, w, 0)
	assert.ErrorIs(t, err, ocfs2.ErrBadInodeSignature)
}
