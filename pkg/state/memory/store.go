package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
)

// MemoryStateStore implements state.Store using in-memory maps.
//
// It is suitable for tests and for runs where the inode scan and the
// directory pass execute in the same process. Nothing survives Close.
//
// Thread Safety:
// All operations are protected by a single read-write mutex.
type MemoryStateStore struct {
	mu sync.RWMutex

	bitmaps  map[state.Bitmap]map[uint64]struct{}
	parents  map[uint64]state.DirParent
	dirs     map[uint64][]state.DirBlockEntry
	geometry *state.Geometry
	runs     []state.RunRecord
}

// NewMemoryStateStore creates an empty store.
func NewMemoryStateStore() *MemoryStateStore {
	s := &MemoryStateStore{
		bitmaps: make(map[state.Bitmap]map[uint64]struct{}),
		parents: make(map[uint64]state.DirParent),
		dirs:    make(map[uint64][]state.DirBlockEntry),
	}
	for _, bm := range state.Bitmaps {
		s.bitmaps[bm] = make(map[uint64]struct{})
	}
	return s
}

func (s *MemoryStateStore) Test(ctx context.Context, bm state.Bitmap, ino uint64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.bitmaps[bm]
	if !ok {
		return false, fmt.Errorf("%w: %d", state.ErrUnknownBitmap, bm)
	}
	_, member := set[ino]
	return member, nil
}

func (s *MemoryStateStore) Set(ctx context.Context, bm state.Bitmap, ino uint64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.bitmaps[bm]
	if !ok {
		return false, fmt.Errorf("%w: %d", state.ErrUnknownBitmap, bm)
	}
	_, was := set[ino]
	set[ino] = struct{}{}
	return was, nil
}

func (s *MemoryStateStore) Members(ctx context.Context, bm state.Bitmap) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.bitmaps[bm]
	if !ok {
		return nil, fmt.Errorf("%w: %d", state.ErrUnknownBitmap, bm)
	}
	out := make([]uint64, 0, len(set))
	for ino := range set {
		out = append(out, ino)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *MemoryStateStore) AddParent(ctx context.Context, ino uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.parents[ino]; !ok {
		s.parents[ino] = state.DirParent{}
	}
	return nil
}

func (s *MemoryStateStore) LookupParent(ctx context.Context, ino uint64) (state.DirParent, error) {
	if err := ctx.Err(); err != nil {
		return state.DirParent{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.parents[ino]
	if !ok {
		return state.DirParent{}, fmt.Errorf("inode %d: %w", ino, state.ErrNoParent)
	}
	return p, nil
}

func (s *MemoryStateStore) UpdateParent(ctx context.Context, ino uint64, p state.DirParent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.parents[ino]; !ok {
		return fmt.Errorf("inode %d: %w", ino, state.ErrNoParent)
	}
	s.parents[ino] = p
	return nil
}

func (s *MemoryStateStore) ListParents(ctx context.Context) ([]state.ParentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]state.ParentRecord, 0, len(s.parents))
	for ino, p := range s.parents {
		out = append(out, state.ParentRecord{Ino: ino, Parent: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ino < out[j].Ino })
	return out, nil
}

func (s *MemoryStateStore) AddDirBlock(ctx context.Context, dbe state.DirBlockEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blocks := s.dirs[dbe.Ino]
	i := sort.Search(len(blocks), func(i int) bool { return blocks[i].Blkcount >= dbe.Blkcount })
	if i < len(blocks) && blocks[i].Blkcount == dbe.Blkcount {
		blocks[i] = dbe
		return nil
	}
	blocks = append(blocks, state.DirBlockEntry{})
	copy(blocks[i+1:], blocks[i:])
	blocks[i] = dbe
	s.dirs[dbe.Ino] = blocks
	return nil
}

func (s *MemoryStateStore) Directories(ctx context.Context) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]uint64, 0, len(s.dirs))
	for ino := range s.dirs {
		out = append(out, ino)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *MemoryStateStore) IterateDirBlocks(ctx context.Context, dirIno uint64, visit state.DirBlockVisitor) error {
	s.mu.RLock()
	blocks := append([]state.DirBlockEntry(nil), s.dirs[dirIno]...)
	s.mu.RUnlock()

	for _, dbe := range blocks {
		if err := ctx.Err(); err != nil {
			return err
		}

		action, err := visit(ctx, dbe)
		if err != nil {
			return err
		}
		if action == state.IterAbort {
			return nil
		}
	}
	return nil
}

func (s *MemoryStateStore) SetGeometry(ctx context.Context, g state.Geometry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.geometry = &g
	return nil
}

func (s *MemoryStateStore) Geometry(ctx context.Context) (state.Geometry, error) {
	if err := ctx.Err(); err != nil {
		return state.Geometry{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.geometry == nil {
		return state.Geometry{}, state.ErrNoGeometry
	}
	return *s.geometry, nil
}

func (s *MemoryStateStore) SaveRun(ctx context.Context, run state.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = append(s.runs, run)
	return nil
}

func (s *MemoryStateStore) LastRun(ctx context.Context) (state.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return state.RunRecord{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.runs) == 0 {
		return state.RunRecord{}, state.ErrNoRun
	}
	return s.runs[len(s.runs)-1], nil
}

func (s *MemoryStateStore) Healthcheck(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStateStore) Close() error {
	return nil
}
