package pass2

import (
	"context"
	"errors"

	"github.com/Byte-Jerry/ocfs2-tools/internal/logger"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/device"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
)

// checkBlock is the DirBlockVisitor of the pass. A read failure gives up on
// the rest of the directory; a fatal error stops the pass.
func (c *checker) checkBlock(ctx context.Context, dbe state.DirBlockEntry) (state.IterAction, error) {
	used, err := c.testBitmap(ctx, state.UsedInodes, dbe.Ino)
	if err != nil {
		return state.IterAbort, err
	}
	if !used {
		c.res.SkippedBlocks++
		c.metrics.ObserveBlock(BlockSkipped)
		return state.IterContinue, nil
	}

	if err := c.dev.ReadBlock(ctx, dbe.Blkno, c.buf); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return state.IterAbort, ctxErr
		}
		logger.Warn("Failed to read block %d of directory inode %d, skipping the rest of the directory: %v",
			dbe.Blkno, dbe.Ino, err)
		c.res.AbortedBlocks++
		c.metrics.ObserveBlock(BlockAborted)
		return state.IterAbort, nil
	}

	logger.Info("Checking directory inode %d logical block %d physical block %d",
		dbe.Ino, dbe.Blkcount, dbe.Blkno)

	w := &blockWalk{dbe: dbe, buf: c.buf}
	c.names.reset()
	defer c.names.reset()

	if err := c.walkBlock(ctx, w); err != nil {
		return state.IterAbort, err
	}

	c.res.Blocks++
	c.metrics.ObserveBlock(BlockChecked)

	if w.changed {
		c.res.Changed = true
		c.res.ChangedBlocks++
		c.writeBack(ctx, dbe)
	}
	return state.IterContinue, nil
}

// walkBlock steps through the entries of w from offset 0 until the cursor
// reaches the block end.
func (c *checker) walkBlock(ctx context.Context, w *blockWalk) error {
	off, prevOff := 0, -1
	dirents := 0

	for off < len(w.buf) {
		res, err := c.fixLengths(w, off, prevOff)
		if err != nil {
			return err
		}
		switch res {
		case lengthChanged:
			continue
		case lengthFolded:
			off = len(w.buf)
			continue
		}

		d := w.entry(off)
		if logger.IsDebug() {
			logger.Debug("checking dirent offset %d, ino %d rec_len %d name_len %d file_type %d",
				off, d.Inode(), d.RecLen(), d.NameLen(), d.FileType())
		}
		dirents++

		if err := c.checkEntry(ctx, w, off); err != nil {
			return err
		}

		prevOff = off
		off += d.RecLen()
	}

	c.res.Dirents += uint64(dirents)
	c.metrics.ObserveDirents(dirents)
	return nil
}

// checkEntry runs the per-entry checks in order. An entry whose inode gets
// cleared is inert and skips the remaining checks.
func (c *checker) checkEntry(ctx context.Context, w *blockWalk, off int) error {
	d := w.entry(off)

	if err := c.fixDots(ctx, w, off); err != nil || d.Inode() == 0 {
		return err
	}

	c.fixName(w, off)
	if d.Inode() == 0 {
		return nil
	}

	if err := c.fixInode(ctx, w, off); err != nil || d.Inode() == 0 {
		return err
	}
	if err := c.fixFiletype(ctx, w, off); err != nil || d.Inode() == 0 {
		return err
	}
	if err := c.fixLinkage(ctx, w, off); err != nil || d.Inode() == 0 {
		return err
	}
	return c.checkDups(ctx, w, off)
}

// writeBack persists a repaired block when writes are enabled. Write
// failures are reported and the pass carries on.
func (c *checker) writeBack(ctx context.Context, dbe state.DirBlockEntry) {
	if !c.write {
		return
	}

	err := c.dev.WriteBlock(ctx, dbe.Blkno, c.buf)
	switch {
	case err == nil:
		c.res.WrittenBlocks++
	case errors.Is(err, device.ErrReadOnly):
		c.res.WriteFailures++
		logger.Warn("Device is read-only, repairs to block %d of directory inode %d not written",
			dbe.Blkno, dbe.Ino)
	default:
		c.res.WriteFailures++
		logger.Error("Failed to write block %d of directory inode %d: %v", dbe.Blkno, dbe.Ino, err)
	}
}
