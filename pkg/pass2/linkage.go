package pass2

import (
	"context"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/problem"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
)

// fixLinkage records the first directory to claim a subdirectory and offers
// to sever later claims from other directories.
func (c *checker) fixLinkage(ctx context.Context, w *blockWalk, off int) error {
	if expectedDots(w.dbe, off) != dotNone {
		return nil
	}

	d := w.entry(off)
	ino := d.Inode()

	isDir, err := c.testBitmap(ctx, state.DirInodes, ino)
	if err != nil || !isDir {
		return err
	}

	p, err := c.lookupParent(ctx, ino)
	if err != nil {
		return err
	}

	if p.Dirent == 0 {
		p.Dirent = w.dbe.Ino
		return c.updateParent(ctx, ino, p)
	}
	if p.Dirent == w.dbe.Ino {
		return nil
	}

	if c.ask(problem.DuplicateParent,
		"Directory inode %d is not the first to claim to be the parent of subdir %q (%d), "+
			"directory inode %d is. Forget this linkage and leave the previous parent of %q intact?",
		w.dbe.Ino, d.Name(), ino, p.Dirent, d.Name()) {
		d.SetInode(0)
		w.changed = true
	}
	return nil
}
