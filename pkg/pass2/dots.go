package pass2

import (
	"bytes"
	"context"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/ocfs2"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/problem"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
)

// dotRole is the dot entry expected at a position. Its value is the number
// of dots in the expected name.
type dotRole int

const (
	dotNone   dotRole = 0
	dotSelf   dotRole = 1
	dotParent dotRole = 2
)

// expectedDots returns the dot role of offset off in the block described by
// dbe. Only the first logical block of a directory has dot entries.
func expectedDots(dbe state.DirBlockEntry, off int) dotRole {
	if dbe.Blkcount != 0 {
		return dotNone
	}
	switch off {
	case 0:
		return dotSelf
	case ocfs2.MinRecLen:
		return dotParent
	}
	return dotNone
}

// hasDots reports whether d's name is exactly n dots, for n of 1 or 2.
func hasDots(d ocfs2.DirEntry, n dotRole) bool {
	if n < dotSelf || n > dotParent || d.NameLen() != int(n) {
		return false
	}
	return bytes.Equal(d.Name(), dotName(n))
}

func dotName(n dotRole) []byte {
	return bytes.Repeat([]byte{'.'}, int(n))
}

// fixDots makes the first block start with "." and "..", and removes dot
// entries found anywhere else.
func (c *checker) fixDots(ctx context.Context, w *blockWalk, off int) error {
	d := w.entry(off)
	role := expectedDots(w.dbe, off)

	if role == dotNone {
		if !hasDots(d, dotSelf) && !hasDots(d, dotParent) {
			return nil
		}
		if c.ask(problem.DuplicateDot, "Duplicate '%s' directory entry found, remove?", d.Name()) {
			d.SetInode(0)
			w.changed = true
		}
		return nil
	}

	nameChanged := false
	if !hasDots(d, role) && c.ask(problem.MissingDots,
		"Directory inode %d is missing '%s' at offset %d, found %q, replace?",
		w.dbe.Ino, dotName(role), off, d.Name()) {
		d.SetName(dotName(role))
		nameChanged = true
		w.changed = true
	}

	// ".." is only recorded here. Its target is repaired once every
	// directory's real parent is known.
	if role == dotParent {
		p, err := c.lookupParent(ctx, w.dbe.Ino)
		if err != nil {
			return err
		}
		p.DotDot = d.Inode()
		return c.updateParent(ctx, w.dbe.Ino, p)
	}

	if d.Inode() != w.dbe.Ino && c.ask(problem.BadDotInode,
		"'.' entry in directory inode %d points to inode %d, replace?", w.dbe.Ino, d.Inode()) {
		d.SetInode(w.dbe.Ino)
		w.changed = true
	}

	minLen := ocfs2.RecLen(d.NameLen())
	slack := d.RecLen() - minLen
	if slack < ocfs2.MinRecLen {
		return nil
	}
	if nameChanged || c.ask(problem.DotTooBig,
		"'.' entry in directory inode %d is %d bytes too big, split?", w.dbe.Ino, slack) {
		d.SetRecLen(minLen)

		next := w.entry(off + minLen)
		next.Clear()
		next.SetRecLen(slack)
		w.changed = true
	}
	return nil
}
