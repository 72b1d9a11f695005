package pass2

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	memdev "github.com/Byte-Jerry/ocfs2-tools/pkg/device/memory"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/ocfs2"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/problem"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/state/memory"
)

const (
	testBlockSize   = 512
	testTotalBlocks = 64
	testRoot        = 5
)

// ent describes one directory entry for layout. recLen 0 means the minimal
// length; the last entry always extends to the block end.
type ent struct {
	ino    uint64
	ft     ocfs2.FileType
	name   string
	recLen int
}

// layout writes entries back to back into block.
func layout(block []byte, entries ...ent) {
	clear(block)
	off := 0
	for i, e := range entries {
		recLen := e.recLen
		if recLen == 0 {
			recLen = ocfs2.RecLen(len(e.name))
		}
		if i == len(entries)-1 {
			recLen = len(block) - off
		}
		ocfs2.PutDirEntry(block, off, e.ino, recLen, e.ft, e.name)
		off += recLen
	}
}

// dirBlock0 lays out a first directory block with "." and "..".
func dirBlock0(block []byte, self, parent uint64, entries ...ent) {
	all := append([]ent{
		{ino: self, ft: ocfs2.FileTypeDir, name: "."},
		{ino: parent, ft: ocfs2.FileTypeDir, name: ".."},
	}, entries...)
	layout(block, all...)
}

// walkOffsets follows rec_len from offset 0 and returns each entry offset
// and the final cursor. It stops on a length that would loop or overrun.
func walkOffsets(block []byte) ([]int, int) {
	var offs []int
	off := 0
	for off < len(block) {
		if len(block)-off < ocfs2.DirMemberLen {
			return offs, off
		}
		d := ocfs2.EntryAt(block, off)
		if !trustworthyLengths(d) {
			return offs, off
		}
		offs = append(offs, off)
		off += d.RecLen()
	}
	return offs, off
}

type entryView struct {
	Ino  uint64
	Name string
	FT   ocfs2.FileType
}

func entries(block []byte) []entryView {
	offs, _ := walkOffsets(block)
	out := make([]entryView, 0, len(offs))
	for _, off := range offs {
		d := ocfs2.EntryAt(block, off)
		out = append(out, entryView{Ino: d.Inode(), Name: string(d.Name()), FT: d.FileType()})
	}
	return out
}

// fixture is a small filesystem: a memory state store and a memory device.
type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *memory.MemoryStateStore
	dev      *memdev.MemoryDevice
	resolver *problem.StaticResolver
}

func newFixture(t *testing.T, mode problem.Mode) *fixture {
	t.Helper()
	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		store:    memory.NewMemoryStateStore(),
		dev:      memdev.NewMemoryDevice(testBlockSize, testTotalBlocks),
		resolver: &problem.StaticResolver{Mode: mode},
	}
	require.NoError(t, f.store.SetGeometry(f.ctx, state.Geometry{
		BlockSize:   testBlockSize,
		TotalBlocks: testTotalBlocks,
		RootInode:   testRoot,
	}))
	return f
}

func (f *fixture) set(bm state.Bitmap, ino uint64) {
	f.t.Helper()
	_, err := f.store.Set(f.ctx, bm, ino)
	require.NoError(f.t, err)
}

// addDir registers a used directory whose logical blocks are blknos.
func (f *fixture) addDir(ino uint64, blknos ...uint64) {
	f.t.Helper()
	f.set(state.UsedInodes, ino)
	f.set(state.DirInodes, ino)
	require.NoError(f.t, f.store.AddParent(f.ctx, ino))
	for i, blkno := range blknos {
		require.NoError(f.t, f.store.AddDirBlock(f.ctx, state.DirBlockEntry{
			Ino: ino, Blkcount: uint64(i), Blkno: blkno,
		}))
	}
}

func (f *fixture) addFile(ino uint64) {
	f.t.Helper()
	f.set(state.UsedInodes, ino)
	f.set(state.RegInodes, ino)
}

func (f *fixture) block(blkno uint64) []byte {
	return f.dev.Block(blkno)
}

func (f *fixture) parent(ino uint64) state.DirParent {
	f.t.Helper()
	p, err := f.store.LookupParent(f.ctx, ino)
	require.NoError(f.t, err)
	return p
}

func (f *fixture) isSet(bm state.Bitmap, ino uint64) bool {
	f.t.Helper()
	set, err := f.store.Test(f.ctx, bm, ino)
	require.NoError(f.t, err)
	return set
}

func (f *fixture) options() Options {
	return Options{Device: f.dev, Resolver: f.resolver, WriteChanges: true}
}

func (f *fixture) run() (*Result, error) {
	return Run(f.ctx, f.store, f.options())
}

// checker returns a checker over the fixture for unit tests of one step.
func (f *fixture) checker() *checker {
	geo, err := f.store.Geometry(f.ctx)
	require.NoError(f.t, err)
	return newChecker(f.store, geo, f.options())
}

// walk returns a blockWalk over a copy of block with the given descriptor.
func walk(dbe state.DirBlockEntry, block []byte) *blockWalk {
	buf := make([]byte, len(block))
	copy(buf, block)
	return &blockWalk{dbe: dbe, buf: buf}
}

// failingOracle fails Test for one bitmap.
type failingOracle struct {
	state.Store
	bitmap state.Bitmap
}

var errOracle = errors.New("bitmap unavailable")

func (o *failingOracle) Test(ctx context.Context, bm state.Bitmap, ino uint64) (bool, error) {
	if bm == o.bitmap {
		return false, errOracle
	}
	return o.Store.Test(ctx, bm, ino)
}
