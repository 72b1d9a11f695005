package ocfs2

import "fmt"

// FileType is the cached type tag stored in a directory entry.
type FileType uint8

const (
	FileTypeUnknown FileType = iota
	FileTypeRegular
	FileTypeDir
	FileTypeCharDev
	FileTypeBlockDev
	FileTypeFifo
	FileTypeSocket
	FileTypeSymlink

	fileTypeMax
)

const (
	modeTypeMask  = 0o170000
	modeTypeShift = 12
)

// typeByMode maps (mode & S_IFMT) >> 12 to a directory entry type tag.
var typeByMode = [16]FileType{
	0o01: FileTypeFifo,
	0o02: FileTypeCharDev,
	0o04: FileTypeDir,
	0o06: FileTypeBlockDev,
	0o10: FileTypeRegular,
	0o12: FileTypeSymlink,
	0o14: FileTypeSocket,
}

// TypeByMode returns the directory entry type implied by an inode mode.
// Modes with no recognised format bits map to FileTypeUnknown.
func TypeByMode(mode uint16) FileType {
	return typeByMode[(mode&modeTypeMask)>>modeTypeShift]
}

// Valid reports whether the tag is one of the defined types.
func (t FileType) Valid() bool {
	return t < fileTypeMax
}

func (t FileType) String() string {
	switch t {
	case FileTypeUnknown:
		return "unknown"
	case FileTypeRegular:
		return "regular file"
	case FileTypeDir:
		return "directory"
	case FileTypeCharDev:
		return "character device"
	case FileTypeBlockDev:
		return "block device"
	case FileTypeFifo:
		return "fifo"
	case FileTypeSocket:
		return "socket"
	case FileTypeSymlink:
		return "symlink"
	default:
		return fmt.Sprintf("invalid(%d)", uint8(t))
	}
}
