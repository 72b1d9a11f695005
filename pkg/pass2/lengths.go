package pass2

import (
	"github.com/Byte-Jerry/ocfs2-tools/pkg/ocfs2"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/problem"
)

// lengthResult tells the block walk how to continue after a length check.
type lengthResult int

const (
	// lengthOK: the entry can be walked and checked.
	lengthOK lengthResult = iota
	// lengthChanged: the entry was rewritten; check the same offset again.
	lengthChanged
	// lengthFolded: the rest of the block now belongs to an earlier entry.
	lengthFolded
)

// trustworthyLengths reports whether d's rec_len and name_len can be used
// to step to the next entry.
func trustworthyLengths(d ocfs2.DirEntry) bool {
	recLen := d.RecLen()
	return recLen >= ocfs2.MinRecLen &&
		ocfs2.IsAligned(recLen) &&
		recLen <= d.Left() &&
		ocfs2.RecLen(d.NameLen()) <= recLen
}

// fixLengths validates the lengths of the entry at off against the bytes
// left in the block. prevOff is the offset of the previous entry in this
// block, or -1.
//
// Declining the repair is fatal.
func (c *checker) fixLengths(w *blockWalk, off, prevOff int) (lengthResult, error) {
	left := len(w.buf) - off

	if left >= ocfs2.DirMemberLen && trustworthyLengths(w.entry(off)) {
		return lengthOK, nil
	}

	if !c.ask(problem.DirentLength,
		"Directory inode %d corrupted in logical block %d physical block %d offset %d",
		w.dbe.Ino, w.dbe.Blkcount, w.dbe.Blkno, off) {
		return lengthOK, fatalf(ErrDirCorrupted, w.dbe.Ino, nil,
			"declined to repair logical block %d physical block %d offset %d",
			w.dbe.Blkcount, w.dbe.Blkno, off)
	}
	w.changed = true

	// Too few bytes for even a header.
	if left < ocfs2.DirMemberLen {
		foldIntoPrev(w, prevOff)
		return lengthFolded, nil
	}

	d := w.entry(off)
	recLen := d.RecLen()

	switch {
	case recLen == ocfs2.DirMemberLen:
		// An empty entry written without alignment padding. Shift the rest
		// of the block down over it so later entries survive.
		tail := w.buf[off:]
		copy(tail, tail[recLen:])
		clear(tail[len(tail)-recLen:])
		return lengthChanged, nil

	case recLen > left && d.NameLen() <= left:
		d.SetRecLen(left)
		return lengthChanged, nil

	case expectedDots(w.dbe, off) == dotParent:
		// Folding here would swallow ".." into ".". Keep the slot so the
		// dot check can rebuild it.
		if ocfs2.IsAligned(recLen) && recLen >= ocfs2.MinRecLen && recLen <= left {
			d.Clear()
			return lengthChanged, nil
		}

	case prevOff >= 0 && ocfs2.IsAligned(recLen) && recLen <= left:
		foldIntoPrev(w, prevOff)
		return lengthFolded, nil
	}

	d.Clear()
	d.SetRecLen(left)
	if left < ocfs2.MinRecLen {
		foldIntoPrev(w, prevOff)
		return lengthFolded, nil
	}
	return lengthChanged, nil
}

// foldIntoPrev grows the previous entry, which ends where the bad one
// starts, so that it reaches the block end. Without a previous entry the
// bytes are left alone.
func foldIntoPrev(w *blockWalk, prevOff int) {
	if prevOff < 0 {
		return
	}
	w.entry(prevOff).SetRecLen(len(w.buf) - prevOff)
}
