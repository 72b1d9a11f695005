package pass2

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/Byte-Jerry/ocfs2-tools/internal/logger"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/device"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/ocfs2"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/problem"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
)

// Options configures a pass run.
type Options struct {
	// Device holds the directory blocks. Required.
	Device device.BlockDevice

	// Resolver decides every repair. Required.
	Resolver problem.Resolver

	// Inodes reads inode headers. Defaults to a device.InodeReader on Device.
	Inodes InodeReader

	// Metrics receives statistics. Nil disables them.
	Metrics Metrics

	// Out receives duplicate name notices. Nil discards them.
	Out io.Writer

	// WriteChanges writes every repaired block back to Device.
	WriteChanges bool
}

// Result summarises a pass run.
type Result struct {
	RunID uuid.UUID

	// Blocks counts directory blocks walked to the end.
	Blocks uint64

	// SkippedBlocks counts blocks of directories not marked in use.
	SkippedBlocks uint64

	// AbortedBlocks counts blocks whose read failed.
	AbortedBlocks uint64

	Dirents    uint64
	Duplicates uint64

	// Fixes counts accepted repairs per kind.
	Fixes map[problem.Kind]int64

	// Declined counts problems left unrepaired.
	Declined uint64

	// Changed is set when any block was modified in memory.
	Changed       bool
	ChangedBlocks uint64
	WrittenBlocks uint64
	WriteFailures uint64
}

// Run checks every directory block recorded in store.
//
// The root directory, if the inode scan recorded it, is made its own first
// parent before any block is walked. Directories are visited in ascending
// inode order and their blocks in logical order.
//
// Run returns a *FatalError when the pass had to stop; the partial Result
// is returned alongside it. Either way a RunRecord is saved in the store.
func Run(ctx context.Context, store state.Store, opts Options) (*Result, error) {
	if store == nil {
		return nil, errors.New("pass2: state store is required")
	}
	if opts.Device == nil {
		return nil, errors.New("pass2: device is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("pass2: resolver is required")
	}

	geo, err := store.Geometry(ctx)
	if err != nil {
		return nil, fmt.Errorf("pass2: failed to load filesystem geometry: %w", err)
	}
	if !ocfs2.ValidBlockSize(int(geo.BlockSize)) {
		return nil, fmt.Errorf("pass2: unsupported block size %d", geo.BlockSize)
	}
	if int(geo.BlockSize) != opts.Device.BlockSize() {
		return nil, fmt.Errorf("pass2: state block size %d does not match device block size %d",
			geo.BlockSize, opts.Device.BlockSize())
	}

	c := newChecker(store, geo, opts)

	started := time.Now()
	logger.Info("Pass 2: checking directory entries (run %s)", c.res.RunID)

	runErr := c.run(ctx)

	finished := time.Now()
	c.metrics.ObserveRun(finished.Sub(started), runErr != nil)

	if err := store.SaveRun(ctx, c.record(started, finished, runErr)); err != nil {
		logger.Warn("Failed to save run record %s: %v", c.res.RunID, err)
	}

	if runErr != nil {
		logger.Error("Pass 2 aborted: %v", runErr)
		return c.res, runErr
	}

	logger.Info("Pass 2 done: %d blocks, %d entries, %d duplicate blocks, changed=%v",
		c.res.Blocks, c.res.Dirents, c.res.Duplicates, c.res.Changed)
	return c.res, nil
}

func newChecker(store state.Store, geo state.Geometry, opts Options) *checker {
	c := &checker{
		store:    store,
		geo:      geo,
		dev:      opts.Device,
		inodes:   opts.Inodes,
		resolver: opts.Resolver,
		metrics:  opts.Metrics,
		out:      opts.Out,
		write:    opts.WriteChanges,
		buf:      make([]byte, opts.Device.BlockSize()),
		names:    newNameSet(),
		res: &Result{
			RunID: uuid.New(),
			Fixes: make(map[problem.Kind]int64),
		},
	}
	if c.inodes == nil {
		c.inodes = device.NewInodeReader(opts.Device)
	}
	if c.metrics == nil {
		c.metrics = noopMetrics{}
	}
	if c.out == nil {
		c.out = io.Discard
	}
	return c
}

func (c *checker) run(ctx context.Context) error {
	if err := c.seedRoot(ctx); err != nil {
		return err
	}

	dirs, err := c.store.Directories(ctx)
	if err != nil {
		return fmt.Errorf("failed to list directories: %w", err)
	}

	for _, dir := range dirs {
		if err := c.store.IterateDirBlocks(ctx, dir, c.checkBlock); err != nil {
			return err
		}
	}
	return nil
}

// seedRoot makes the root directory claim itself as parent. A root missing
// from the scan is left for the reconnect pass to create.
func (c *checker) seedRoot(ctx context.Context) error {
	root := c.geo.RootInode

	p, err := c.store.LookupParent(ctx, root)
	if errors.Is(err, state.ErrNoParent) {
		logger.Warn("Root directory inode %d was not found by the inode scan", root)
		return nil
	}
	if err != nil {
		return fatalf(ErrInternalFailure, root, err, "looking up the root directory parent record")
	}

	p.Dirent = root
	return c.updateParent(ctx, root, p)
}

func (c *checker) record(started, finished time.Time, runErr error) state.RunRecord {
	fixes := make(map[string]int64, len(c.res.Fixes))
	for kind, n := range c.res.Fixes {
		fixes[kind.String()] = n
	}

	rec := state.RunRecord{
		ID:         c.res.RunID,
		Started:    started,
		Finished:   finished,
		Blocks:     c.res.Blocks,
		Dirents:    c.res.Dirents,
		Fixes:      fixes,
		Duplicates: c.res.Duplicates,
		Changed:    c.res.Changed,
	}
	if runErr != nil {
		rec.Aborted = true
		rec.AbortReason = runErr.Error()
	}
	return rec
}
