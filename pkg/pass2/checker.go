package pass2

import (
	"context"
	"io"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/device"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/ocfs2"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/problem"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
)

// InodeReader reads the on-disk header of an inode.
type InodeReader interface {
	ReadInode(ctx context.Context, ino uint64) (ocfs2.InodeHeader, error)
}

// checker carries the state shared by every block of one pass.
type checker struct {
	store    state.Store
	geo      state.Geometry
	dev      device.BlockDevice
	inodes   InodeReader
	resolver problem.Resolver
	metrics  Metrics
	out      io.Writer
	write    bool

	// buf is the one block buffer reused for every directory block.
	buf   []byte
	names *nameSet

	res *Result
}

// blockWalk is the state of the walk over one directory block.
type blockWalk struct {
	dbe state.DirBlockEntry
	buf []byte

	// dupFound stops duplicate detection after the first hit.
	dupFound bool
	changed  bool
}

func (w *blockWalk) entry(off int) ocfs2.DirEntry {
	return ocfs2.EntryAt(w.buf, off)
}

// ask puts one problem to the resolver using the kind's default answer.
func (c *checker) ask(kind problem.Kind, format string, args ...any) bool {
	fix := c.resolver.ShouldFix(kind, kind.Default(), format, args...)
	c.metrics.RecordFix(kind, fix)
	if fix {
		c.res.Fixes[kind]++
	} else {
		c.res.Declined++
	}
	return fix
}

// testBitmap queries the oracle. Failures are fatal: a repair decision
// cannot be made on a guess.
func (c *checker) testBitmap(ctx context.Context, bm state.Bitmap, ino uint64) (bool, error) {
	set, err := c.store.Test(ctx, bm, ino)
	if err != nil {
		return false, fatalf(ErrOracle, ino, err, "testing inode %d in the %s bitmap", ino, bm)
	}
	return set, nil
}

// lookupParent returns the parent record of directory ino. A missing
// record is fatal.
func (c *checker) lookupParent(ctx context.Context, ino uint64) (state.DirParent, error) {
	p, err := c.store.LookupParent(ctx, ino)
	if err != nil {
		return p, fatalf(ErrInternalFailure, ino, err, "no directory parent record for inode %d", ino)
	}
	return p, nil
}

func (c *checker) updateParent(ctx context.Context, ino uint64, p state.DirParent) error {
	if err := c.store.UpdateParent(ctx, ino, p); err != nil {
		return fatalf(ErrInternalFailure, ino, err, "updating directory parent record for inode %d", ino)
	}
	return nil
}
