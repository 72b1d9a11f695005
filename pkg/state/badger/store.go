package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
)

// BadgerStateStore implements state.Store on top of BadgerDB.
//
// The inode scan and the directory pass may run as separate invocations of
// the tool; persisting the bitmaps and parent records lets the later passes
// pick up exactly what the earlier ones left behind. Parent records are the
// only values rewritten during a pass; everything else is written once by
// the import and then read.
//
// See keys.go for the key layout.
type BadgerStateStore struct {
	db *badger.DB
}

// BadgerStateStoreConfig contains configuration for opening a store.
type BadgerStateStoreConfig struct {
	// DBPath is the directory holding the database files.
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps the database in memory. DBPath is ignored.
	InMemory bool `mapstructure:"in_memory"`

	// SyncWrites fsyncs every write. Off by default: a crashed check is
	// simply rerun from the import.
	SyncWrites bool `mapstructure:"sync_writes"`

	// BadgerOptions overrides every other setting when non-nil.
	BadgerOptions *badger.Options `mapstructure:"-"`
}

// NewBadgerStateStore opens (creating if needed) a BadgerDB state store.
func NewBadgerStateStore(ctx context.Context, config BadgerStateStoreConfig) (*BadgerStateStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.BadgerOptions != nil {
		opts = *config.BadgerOptions
	} else {
		if config.InMemory {
			opts = badger.DefaultOptions("").WithInMemory(true)
		} else {
			if config.DBPath == "" {
				return nil, fmt.Errorf("badger state store: db_path is required")
			}
			opts = badger.DefaultOptions(config.DBPath)
		}
		opts = opts.WithLoggingLevel(badger.WARNING)
		opts = opts.WithCompression(options.None)
		opts = opts.WithSyncWrites(config.SyncWrites)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	return &BadgerStateStore{db: db}, nil
}

func (s *BadgerStateStore) Test(ctx context.Context, bm state.Bitmap, ino uint64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !bm.Valid() {
		return false, fmt.Errorf("%w: %d", state.ErrUnknownBitmap, bm)
	}

	var member bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(keyBitmap(bm, ino))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		member = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to test inode %d in %s bitmap: %w", ino, bm, err)
	}
	return member, nil
}

func (s *BadgerStateStore) Set(ctx context.Context, bm state.Bitmap, ino uint64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !bm.Valid() {
		return false, fmt.Errorf("%w: %d", state.ErrUnknownBitmap, bm)
	}

	var was bool
	err := s.db.Update(func(txn *badger.Txn) error {
		key := keyBitmap(bm, ino)
		_, err := txn.Get(key)
		switch {
		case err == nil:
			was = true
			return nil
		case errors.Is(err, badger.ErrKeyNotFound):
			return txn.Set(key, nil)
		default:
			return err
		}
	})
	if err != nil {
		return false, fmt.Errorf("failed to set inode %d in %s bitmap: %w", ino, bm, err)
	}
	return was, nil
}

func (s *BadgerStateStore) Members(ctx context.Context, bm state.Bitmap) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !bm.Valid() {
		return nil, fmt.Errorf("%w: %d", state.ErrUnknownBitmap, bm)
	}

	prefix := keyBitmapPrefix(bm)
	var out []uint64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			out = append(out, inoFromKey(it.Item().Key(), len(prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s bitmap: %w", bm, err)
	}
	return out, nil
}

func (s *BadgerStateStore) AddParent(ctx context.Context, ino uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(keyParent(ino))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check parent record for inode %d: %w", ino, err)
		}
		return putJSON(txn, keyParent(ino), state.DirParent{})
	})
}

func (s *BadgerStateStore) LookupParent(ctx context.Context, ino uint64) (state.DirParent, error) {
	if err := ctx.Err(); err != nil {
		return state.DirParent{}, err
	}

	var p state.DirParent
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, keyParent(ino), &p)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return state.DirParent{}, fmt.Errorf("inode %d: %w", ino, state.ErrNoParent)
	}
	if err != nil {
		return state.DirParent{}, fmt.Errorf("failed to read parent record for inode %d: %w", ino, err)
	}
	return p, nil
}

func (s *BadgerStateStore) UpdateParent(ctx context.Context, ino uint64, p state.DirParent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(keyParent(ino)); err != nil {
			return err
		}
		return putJSON(txn, keyParent(ino), p)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("inode %d: %w", ino, state.ErrNoParent)
	}
	if err != nil {
		return fmt.Errorf("failed to update parent record for inode %d: %w", ino, err)
	}
	return nil
}

func (s *BadgerStateStore) ListParents(ctx context.Context) ([]state.ParentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(prefixParent)
	var out []state.ParentRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			rec := state.ParentRecord{Ino: inoFromKey(item.Key(), len(prefix))}
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec.Parent)
			})
			if err != nil {
				return fmt.Errorf("failed to decode parent record for inode %d: %w", rec.Ino, err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStateStore) AddDirBlock(ctx context.Context, dbe state.DirBlockEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		val := binary.BigEndian.AppendUint64(nil, dbe.Blkno)
		if err := txn.Set(keyDirBlock(dbe.Ino, dbe.Blkcount), val); err != nil {
			return fmt.Errorf("failed to add block %d of directory %d: %w", dbe.Blkcount, dbe.Ino, err)
		}
		return nil
	})
}

func (s *BadgerStateStore) Directories(ctx context.Context) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(prefixDirBlock)
	var out []uint64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(prefix)
		for it.ValidForPrefix(prefix) {
			ino := inoFromKey(it.Item().Key(), len(prefix))
			out = append(out, ino)
			if ino == ^uint64(0) {
				break
			}
			// Skip the remaining blocks of this directory.
			it.Seek(keyDirPrefix(ino + 1))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list directories: %w", err)
	}
	return out, nil
}

func (s *BadgerStateStore) IterateDirBlocks(ctx context.Context, dirIno uint64, visit state.DirBlockVisitor) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Collect first: the visitor updates parent records and must not run
	// inside a read transaction.
	prefix := keyDirPrefix(dirIno)
	var blocks []state.DirBlockEntry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			dbe := state.DirBlockEntry{
				Ino:      dirIno,
				Blkcount: binary.BigEndian.Uint64(item.Key()[len(prefix):]),
			}
			err := item.Value(func(val []byte) error {
				if len(val) != 8 {
					return fmt.Errorf("corrupt block number for directory %d block %d", dirIno, dbe.Blkcount)
				}
				dbe.Blkno = binary.BigEndian.Uint64(val)
				return nil
			})
			if err != nil {
				return err
			}
			blocks = append(blocks, dbe)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to list blocks of directory %d: %w", dirIno, err)
	}

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

func (s *BadgerStateStore) SetGeometry(ctx context.Context, g state.Geometry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return putJSON(txn, keyGeometry(), g)
	})
}

func (s *BadgerStateStore) Geometry(ctx context.Context) (state.Geometry, error) {
	if err := ctx.Err(); err != nil {
		return state.Geometry{}, err
	}

	var g state.Geometry
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, keyGeometry(), &g)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return state.Geometry{}, state.ErrNoGeometry
	}
	if err != nil {
		return state.Geometry{}, fmt.Errorf("failed to read geometry: %w", err)
	}
	return g, nil
}

func (s *BadgerStateStore) SaveRun(ctx context.Context, run state.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id := run.ID.String()
	return s.db.Update(func(txn *badger.Txn) error {
		if err := putJSON(txn, keyRun(id), run); err != nil {
			return err
		}
		return txn.Set(keyLastRun(), []byte(id))
	})
}

func (s *BadgerStateStore) LastRun(ctx context.Context) (state.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return state.RunRecord{}, err
	}

	var run state.RunRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyLastRun())
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getJSON(txn, keyRun(string(id)), &run)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return state.RunRecord{}, state.ErrNoRun
	}
	if err != nil {
		return state.RunRecord{}, fmt.Errorf("failed to read last run: %w", err)
	}
	return run, nil
}

func (s *BadgerStateStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return fmt.Errorf("badger state store is closed")
	}
	return s.db.View(func(txn *badger.Txn) error { return nil })
}

// Close flushes and closes the database.
func (s *BadgerStateStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

func putJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return txn.Set(key, data)
}

// getJSON returns badger.ErrKeyNotFound unwrapped so callers can map it.
func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}
