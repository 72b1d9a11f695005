// Package state holds the scan state shared between checker passes.
//
// The inode scan that runs before directory checking classifies every inode
// into bitmaps, lists the blocks of every directory and allocates one parent
// record per directory inode. The directory pass reads that state, mutates
// the parent records and the rebuild bitmap, and leaves the result for the
// pass that reconnects directories.
//
// Store implementations:
//   - memory: ephemeral maps, used by tests and one-shot runs
//   - badger: persistent BadgerDB database shared between pass invocations
//
// Concurrency:
// The checker is single threaded. Implementations are nevertheless safe for
// concurrent use so that CLI tooling can inspect a store while it is open.
package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoParent indicates that a directory inode has no parent record.
	// Every directory found by the inode scan must have one, so the
	// directory pass treats this as an internal consistency failure.
	ErrNoParent = errors.New("no directory parent record")

	// ErrNoGeometry indicates the store was never seeded with filesystem
	// geometry.
	ErrNoGeometry = errors.New("filesystem geometry not recorded")

	// ErrNoRun indicates no directory pass run has been recorded.
	ErrNoRun = errors.New("no run recorded")

	// ErrUnknownBitmap indicates an invalid Bitmap value.
	ErrUnknownBitmap = errors.New("unknown bitmap")
)

// Bitmap names one of the inode sets built by the inode scan.
type Bitmap uint8

const (
	// UsedInodes holds every allocated inode.
	UsedInodes Bitmap = iota + 1
	// DirInodes holds inodes that are directories.
	DirInodes
	// RegInodes holds inodes that are regular files.
	RegInodes
	// BadInodes holds inodes the inode scan could not trust.
	BadInodes
	// RebuildDirs holds directories whose entries must be rebuilt.
	RebuildDirs
)

// Bitmaps lists every valid Bitmap.
var Bitmaps = []Bitmap{UsedInodes, DirInodes, RegInodes, BadInodes, RebuildDirs}

func (b Bitmap) String() string {
	switch b {
	case UsedInodes:
		return "used"
	case DirInodes:
		return "directories"
	case RegInodes:
		return "regular"
	case BadInodes:
		return "bad"
	case RebuildDirs:
		return "rebuild"
	default:
		return fmt.Sprintf("bitmap(%d)", uint8(b))
	}
}

// Valid reports whether b names a known bitmap.
func (b Bitmap) Valid() bool {
	return b >= UsedInodes && b <= RebuildDirs
}

// Oracle answers membership questions about the inode bitmaps.
type Oracle interface {
	// Test reports whether ino is a member of bm.
	Test(ctx context.Context, bm Bitmap, ino uint64) (bool, error)

	// Set adds ino to bm and reports whether it was already a member.
	Set(ctx context.Context, bm Bitmap, ino uint64) (bool, error)
}

// DirParent tracks the linkage of one directory inode.
type DirParent struct {
	// Dirent is the first directory found holding an entry that points at
	// this directory. Zero means no claim has been seen yet.
	Dirent uint64 `json:"dirent" yaml:"dirent"`

	// DotDot is the inode recorded in this directory's own ".." entry.
	DotDot uint64 `json:"dot_dot" yaml:"dot_dot"`
}

// ParentRecord pairs a directory inode with its parent record.
type ParentRecord struct {
	Ino    uint64    `json:"ino" yaml:"ino"`
	Parent DirParent `json:"parent" yaml:"parent"`
}

// ParentTable stores one DirParent per directory inode.
type ParentTable interface {
	// AddParent allocates an empty record for ino. Adding an existing
	// record leaves it untouched.
	AddParent(ctx context.Context, ino uint64) error

	// LookupParent returns the record for ino or ErrNoParent.
	LookupParent(ctx context.Context, ino uint64) (DirParent, error)

	// UpdateParent replaces the record for ino. It returns ErrNoParent
	// when no record was allocated.
	UpdateParent(ctx context.Context, ino uint64, p DirParent) error

	// ListParents returns every record ordered by inode.
	ListParents(ctx context.Context) ([]ParentRecord, error)
}

// DirBlockEntry describes one logical block of a directory.
type DirBlockEntry struct {
	// Ino is the directory inode owning the block.
	Ino uint64 `json:"ino" yaml:"ino"`

	// Blkcount is the logical block index within the directory.
	Blkcount uint64 `json:"blkcount" yaml:"blkcount"`

	// Blkno is the physical block number on disk.
	Blkno uint64 `json:"blkno" yaml:"blkno"`
}

// IterAction tells an enumerator whether to continue with a directory.
type IterAction int

const (
	IterContinue IterAction = iota
	// IterAbort stops enumeration of the current directory's remaining
	// blocks. Enumeration resumes with the next directory.
	IterAbort
)

// DirBlockVisitor is invoked once per directory block. A non-nil error
// stops the whole enumeration and is returned by IterateDirBlocks.
type DirBlockVisitor func(ctx context.Context, dbe DirBlockEntry) (IterAction, error)

// DirBlockEnumerator yields the logical blocks of directories.
type DirBlockEnumerator interface {
	// AddDirBlock records a directory block.
	AddDirBlock(ctx context.Context, dbe DirBlockEntry) error

	// Directories returns every directory inode with recorded blocks, in
	// ascending order.
	Directories(ctx context.Context) ([]uint64, error)

	// IterateDirBlocks visits the blocks of dirIno in logical order.
	IterateDirBlocks(ctx context.Context, dirIno uint64, visit DirBlockVisitor) error
}

// Geometry describes the filesystem the state was built from.
type Geometry struct {
	BlockSize   uint32 `json:"block_size" yaml:"block_size"`
	TotalBlocks uint64 `json:"total_blocks" yaml:"total_blocks"`
	RootInode   uint64 `json:"root_inode" yaml:"root_inode"`
}

// RunRecord summarises one directory pass run.
type RunRecord struct {
	ID          uuid.UUID        `json:"id"`
	Started     time.Time        `json:"started"`
	Finished    time.Time        `json:"finished"`
	Blocks      uint64           `json:"blocks"`
	Dirents     uint64           `json:"dirents"`
	Fixes       map[string]int64 `json:"fixes"`
	Duplicates  uint64           `json:"duplicates"`
	Changed     bool             `json:"changed"`
	Aborted     bool             `json:"aborted"`
	AbortReason string           `json:"abort_reason,omitempty"`
}

// Store combines everything a directory pass needs from the scan state.
type Store interface {
	Oracle
	ParentTable
	DirBlockEnumerator

	// SetGeometry records the filesystem geometry.
	SetGeometry(ctx context.Context, g Geometry) error

	// Geometry returns the recorded geometry or ErrNoGeometry.
	Geometry(ctx context.Context) (Geometry, error)

	// Members returns every inode in bm, ascending.
	Members(ctx context.Context, bm Bitmap) ([]uint64, error)

	// SaveRun stores a run summary and marks it as the latest.
	SaveRun(ctx context.Context, run RunRecord) error

	// LastRun returns the most recently saved run or ErrNoRun.
	LastRun(ctx context.Context) (RunRecord, error)

	// Healthcheck verifies the store is usable.
	Healthcheck(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}
