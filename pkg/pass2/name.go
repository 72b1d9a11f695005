package pass2

import (
	"github.com/Byte-Jerry/ocfs2-tools/pkg/problem"
)

// nameReplacement stands in for bytes that may not appear in a name.
const nameReplacement = '.'

func invalidNameByte(b byte) bool {
	return b == '/' || b == 0
}

// fixName clears entries with empty names and replaces path separators and
// NUL bytes in the others.
func (c *checker) fixName(w *blockWalk, off int) {
	d := w.entry(off)

	if d.NameLen() == 0 {
		if c.ask(problem.ZeroLengthName,
			"Entry at offset %d of directory inode %d has a zero-length name, clear it?",
			off, w.dbe.Ino) {
			d.SetInode(0)
			w.changed = true
		}
		return
	}

	name := d.Name()
	asked := false
	for i, b := range name {
		if !invalidNameByte(b) {
			continue
		}
		if !asked {
			asked = true
			if !c.ask(problem.BadNameChars,
				"Entry %q in directory inode %d contains invalid characters, replace with dots?",
				name, w.dbe.Ino) {
				return
			}
		}
		name[i] = nameReplacement
		w.changed = true
	}
}
