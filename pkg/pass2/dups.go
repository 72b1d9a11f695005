package pass2

import (
	"context"
	"fmt"

	"github.com/Byte-Jerry/ocfs2-tools/internal/logger"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
)

// checkDups flags the directory for rebuilding the first time a name repeats
// within the block. The entry itself is left alone.
func (c *checker) checkDups(ctx context.Context, w *blockWalk, off int) error {
	if w.dupFound {
		return nil
	}

	d := w.entry(off)
	if !c.names.insert(d.Name()) {
		return nil
	}

	fmt.Fprintf(c.out, "Duplicate directory entry %q found.\n", d.Name())
	fmt.Fprintf(c.out, "Marking its parent %d for rebuilding.\n", w.dbe.Ino)
	logger.Debug("Duplicate %q in directory %d block %d", d.Name(), w.dbe.Ino, w.dbe.Blkno)

	if _, err := c.store.Set(ctx, state.RebuildDirs, w.dbe.Ino); err != nil {
		return fatalf(ErrOracle, w.dbe.Ino, err, "marking directory inode %d for rebuilding", w.dbe.Ino)
	}

	w.dupFound = true
	c.res.Duplicates++
	c.metrics.ObserveDuplicate()
	return nil
}
