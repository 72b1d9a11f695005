package pass2

import (
	"context"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/ocfs2"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/problem"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
)

// inodeOutOfRange reports whether ino cannot name an inode block.
func (c *checker) inodeOutOfRange(ino uint64) bool {
	return ino < ocfs2.SuperBlockBlkno || ino > c.geo.TotalBlocks
}

// fixInode clears entries pointing outside the filesystem or at inodes the
// inode scan did not find in use.
func (c *checker) fixInode(ctx context.Context, w *blockWalk, off int) error {
	d := w.entry(off)
	ino := d.Inode()

	if c.inodeOutOfRange(ino) && c.ask(problem.InodeOutOfRange,
		"Entry %q refers to inode number %d which is out of range, clear it?", d.Name(), ino) {
		d.SetInode(0)
		w.changed = true
		return nil
	}

	used, err := c.testBitmap(ctx, state.UsedInodes, ino)
	if err != nil {
		return err
	}
	if !used && c.ask(problem.InodeUnused,
		"Entry %q refers to inode number %d which is unused, clear it?", d.Name(), ino) {
		d.SetInode(0)
		w.changed = true
	}
	return nil
}
