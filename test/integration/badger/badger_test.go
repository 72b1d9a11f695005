//go:build integration

package badger_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/device/memory"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/ocfs2"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/pass2"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/problem"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/state/badger"
)

const blockSize = 512

func openStore(t *testing.T, ctx context.Context, dbPath string) *badger.BadgerStateStore {
	t.Helper()
	store, err := badger.NewBadgerStateStore(ctx, badger.BadgerStateStoreConfig{DBPath: dbPath})
	if err != nil {
		t.Fatalf("Failed to open BadgerStateStore: %v", err)
	}
	return store
}

// TestBadgerStateStore_Integration checks that scan state and run records
// survive a restart between import and check, the way the CLI uses them.
//
// Prerequisites:
//   - None (BadgerDB is embedded, no external services needed)
//   - Run with: go test -tags=integration ./test/integration/badger/...
func TestBadgerStateStore_Integration(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "state")

	// ========================================================================
	// Phase 1: import, close
	// ========================================================================

	{
		store := openStore(t, ctx, dbPath)
		manifest := &state.Manifest{
			Filesystem: state.Geometry{BlockSize: blockSize, TotalBlocks: 64, RootInode: 5},
			Inodes: state.ManifestInodes{
				Used:        []uint64{5, 12},
				Directories: []uint64{5, 12},
			},
			Directories: []state.ManifestDirectory{
				{Inode: 5, Blocks: []uint64{40}},
				{Inode: 12, Blocks: []uint64{41}},
			},
		}
		if err := state.Import(ctx, store, manifest); err != nil {
			t.Fatalf("Import failed: %v", err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}

	// ========================================================================
	// Phase 2: reopen, run the check
	// ========================================================================

	dev := memory.NewMemoryDevice(blockSize, 64)
	root := dev.Block(40)
	ocfs2.PutDirEntry(root, 0, 5, 16, ocfs2.FileTypeDir, ".")
	ocfs2.PutDirEntry(root, 16, 5, 16, ocfs2.FileTypeDir, "..")
	ocfs2.PutDirEntry(root, 32, 12, 16, ocfs2.FileTypeDir, "d")
	// Same name twice in one block.
	ocfs2.PutDirEntry(root, 48, 12, blockSize-48, ocfs2.FileTypeDir, "d")
	sub := dev.Block(41)
	ocfs2.PutDirEntry(sub, 0, 12, 16, ocfs2.FileTypeDir, ".")
	ocfs2.PutDirEntry(sub, 16, 5, blockSize-16, ocfs2.FileTypeDir, "..")

	var runID string
	{
		store := openStore(t, ctx, dbPath)

		res, err := pass2.Run(ctx, store, pass2.Options{
			Device:       dev,
			Resolver:     &problem.StaticResolver{Mode: problem.ModePreen},
			WriteChanges: true,
		})
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if res.Blocks != 2 {
			t.Errorf("Expected 2 blocks checked, got %d", res.Blocks)
		}
		if res.Duplicates != 1 {
			t.Errorf("Expected 1 block with duplicate names, got %d", res.Duplicates)
		}
		runID = res.RunID.String()

		if err := store.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}

	// ========================================================================
	// Phase 3: reopen, verify what pass 3 would read
	// ========================================================================

	store := openStore(t, ctx, dbPath)
	defer store.Close()

	p, err := store.LookupParent(ctx, 12)
	if err != nil {
		t.Fatalf("LookupParent failed: %v", err)
	}
	if p.Dirent != 5 || p.DotDot != 5 {
		t.Errorf("Expected parent record {5 5}, got %+v", p)
	}

	rebuild, err := store.Members(ctx, state.RebuildDirs)
	if err != nil {
		t.Fatalf("Members failed: %v", err)
	}
	if len(rebuild) != 1 || rebuild[0] != 5 {
		t.Errorf("Expected root marked for rebuild, got %v", rebuild)
	}

	run, err := store.LastRun(ctx)
	if err != nil {
		t.Fatalf("LastRun failed: %v", err)
	}
	if run.ID.String() != runID {
		t.Errorf("Expected last run %s, got %s", runID, run.ID)
	}

	if _, err := store.LookupParent(ctx, 99); !errors.Is(err, state.ErrNoParent) {
		t.Errorf("Expected ErrNoParent for unknown directory, got %v", err)
	}
}
