package badger

import (
	"encoding/binary"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
)

// Database Key Namespace Design
// ==============================
//
// Data Type           Prefix   Key Format                           Value
// ===========================================================================
// Bitmap member       "b:"     b:<bitmap u8><ino be64>              empty
// Parent record       "p:"     p:<ino be64>                         DirParent (JSON)
// Directory block     "d:"     d:<ino be64><blkcount be64>          blkno (be64)
// Geometry            "g:"     g:fs                                 Geometry (JSON)
// Run record          "r:"     r:<uuid>                             RunRecord (JSON)
// Latest run pointer  "cfg:"   cfg:last_run                         uuid string
//
// Inode numbers are big-endian so that prefix scans return them in
// ascending order, which gives directory and block enumeration its order
// for free.

const (
	prefixBitmap   = "b:"
	prefixParent   = "p:"
	prefixDirBlock = "d:"
	prefixGeometry = "g:"
	prefixRun      = "r:"
	prefixConfig   = "cfg:"
)

func keyBitmapPrefix(bm state.Bitmap) []byte {
	return append([]byte(prefixBitmap), byte(bm))
}

func keyBitmap(bm state.Bitmap, ino uint64) []byte {
	return binary.BigEndian.AppendUint64(keyBitmapPrefix(bm), ino)
}

func keyParent(ino uint64) []byte {
	return binary.BigEndian.AppendUint64([]byte(prefixParent), ino)
}

func keyDirPrefix(ino uint64) []byte {
	return binary.BigEndian.AppendUint64([]byte(prefixDirBlock), ino)
}

func keyDirBlock(ino, blkcount uint64) []byte {
	return binary.BigEndian.AppendUint64(keyDirPrefix(ino), blkcount)
}

func keyGeometry() []byte {
	return []byte(prefixGeometry + "fs")
}

func keyRun(id string) []byte {
	return []byte(prefixRun + id)
}

func keyLastRun() []byte {
	return []byte(prefixConfig + "last_run")
}

// inoFromKey extracts the big-endian inode that follows prefixLen bytes.
func inoFromKey(key []byte, prefixLen int) uint64 {
	return binary.BigEndian.Uint64(key[prefixLen : prefixLen+8])
}
