package ocfs2

import (
	"encoding/binary"
)

// Directory entry field offsets.
const (
	direntInodeOff    = 0
	direntRecLenOff   = 8
	direntNameLenOff  = 10
	direntFileTypeOff = 11
	direntNameOff     = DirMemberLen
)

// DirEntry is a view of one directory record inside a block buffer. It
// aliases the buffer: setters write straight into the block.
//
// The view extends to the end of the block, so a header can always be read
// when at least DirMemberLen bytes remain. Name accessors clip to the
// buffer and never read past it even when name_len lies.
type DirEntry struct {
	buf []byte
}

// EntryAt returns a view of the record starting at off. The caller must
// ensure off+DirMemberLen <= len(block).
func EntryAt(block []byte, off int) DirEntry {
	return DirEntry{buf: block[off:]}
}

// Left is the number of bytes from the start of the entry to the block end.
func (d DirEntry) Left() int {
	return len(d.buf)
}

func (d DirEntry) Inode() uint64 {
	return binary.LittleEndian.Uint64(d.buf[direntInodeOff:])
}

func (d DirEntry) SetInode(ino uint64) {
	binary.LittleEndian.PutUint64(d.buf[direntInodeOff:], ino)
}

func (d DirEntry) RecLen() int {
	return int(binary.LittleEndian.Uint16(d.buf[direntRecLenOff:]))
}

func (d DirEntry) SetRecLen(n int) {
	binary.LittleEndian.PutUint16(d.buf[direntRecLenOff:], uint16(n))
}

func (d DirEntry) NameLen() int {
	return int(d.buf[direntNameLenOff])
}

func (d DirEntry) SetNameLen(n int) {
	d.buf[direntNameLenOff] = uint8(n)
}

func (d DirEntry) FileType() FileType {
	return FileType(d.buf[direntFileTypeOff])
}

func (d DirEntry) SetFileType(t FileType) {
	d.buf[direntFileTypeOff] = uint8(t)
}

// Name returns the name bytes, aliased into the block. It is clipped to the
// bytes actually present after the header.
func (d DirEntry) Name() []byte {
	end := direntNameOff + d.NameLen()
	if end > len(d.buf) {
		end = len(d.buf)
	}
	return d.buf[direntNameOff:end]
}

// SetName stores name and its length. The caller must ensure it fits.
func (d DirEntry) SetName(name []byte) {
	copy(d.buf[direntNameOff:], name)
	d.SetNameLen(len(name))
}

// Clear zeroes the header fields of the entry, leaving rec_len untouched.
func (d DirEntry) Clear() {
	d.SetInode(0)
	d.SetNameLen(0)
	d.SetFileType(FileTypeUnknown)
}

// PutDirEntry encodes a complete record at off. It is used by tools and
// tests that lay out directory blocks.
func PutDirEntry(block []byte, off int, ino uint64, recLen int, ft FileType, name string) {
	d := EntryAt(block, off)
	d.SetInode(ino)
	d.SetRecLen(recLen)
	d.SetFileType(ft)
	d.SetName([]byte(name))
}
