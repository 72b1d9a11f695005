package ocfs2

const (
	// SuperBlockBlkno is the block number of the superblock. Inode numbers
	// below it cannot refer to a real inode.
	SuperBlockBlkno = 2

	// DirPad is the alignment unit of a directory record length.
	DirPad = 4

	// DirRound masks the bits that must be clear in an aligned record length.
	DirRound = DirPad - 1

	// DirMemberLen is the size of the fixed directory entry header
	// (inode, rec_len, name_len, file_type) preceding the name bytes.
	DirMemberLen = 12

	// MaxNameLen is the largest name a directory entry can carry.
	MaxNameLen = 255

	// MinBlockSize and MaxBlockSize bound the block sizes a volume can be
	// formatted with. A record length is 16 bits wide, so a directory entry
	// can never span a larger block.
	MinBlockSize = 512
	MaxBlockSize = 4096

	// DefaultBlockSize is used when the configuration does not name one.
	DefaultBlockSize = 4096

	// RootInode is the conventional root directory inode used when the
	// configuration does not name one. Real volumes record it in the
	// superblock.
	RootInode = 5
)

// RecLen returns the minimal aligned record length able to hold a name of
// nameLen bytes.
func RecLen(nameLen int) int {
	return (nameLen + DirMemberLen + DirRound) &^ DirRound
}

// MinRecLen is the smallest record length the checker trusts: room for the
// header and a one byte name.
var MinRecLen = RecLen(1)

// IsAligned reports whether a record length is a multiple of DirPad.
func IsAligned(recLen int) bool {
	return recLen&DirRound == 0
}

// ValidBlockSize reports whether n is a power of two between MinBlockSize
// and MaxBlockSize.
func ValidBlockSize(n int) bool {
	return n >= MinBlockSize && n <= MaxBlockSize && n&(n-1) == 0
}
