package pass2

import (
	"context"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/ocfs2"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/problem"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
)

// typeBitmaps are consulted in order before falling back to the inode.
var typeBitmaps = []struct {
	bitmap state.Bitmap
	ft     ocfs2.FileType
}{
	{state.DirInodes, ocfs2.FileTypeDir},
	{state.RegInodes, ocfs2.FileTypeRegular},
	{state.BadInodes, ocfs2.FileTypeUnknown},
}

// expectedType returns the type tag an entry pointing at ino should carry.
func (c *checker) expectedType(ctx context.Context, ino uint64) (ocfs2.FileType, error) {
	for _, tb := range typeBitmaps {
		set, err := c.testBitmap(ctx, tb.bitmap, ino)
		if err != nil {
			return ocfs2.FileTypeUnknown, err
		}
		if set {
			return tb.ft, nil
		}
	}

	h, err := c.inodes.ReadInode(ctx, ino)
	if err != nil {
		return ocfs2.FileTypeUnknown, fatalf(ErrInodeRead, ino, err,
			"reading inode %d when verifying an entry's file type", ino)
	}
	return h.Type(), nil
}

// fixFiletype makes the entry's cached type agree with its inode.
func (c *checker) fixFiletype(ctx context.Context, w *blockWalk, off int) error {
	d := w.entry(off)

	want, err := c.expectedType(ctx, d.Inode())
	if err != nil {
		return err
	}

	got := d.FileType()
	if got != want && c.ask(problem.BadFileType,
		"Entry %q contains file type %s (%d) but its inode %d leads to type %s (%d), fix?",
		d.Name(), got, uint8(got), d.Inode(), want, uint8(want)) {
		d.SetFileType(want)
		w.changed = true
	}
	return nil
}
