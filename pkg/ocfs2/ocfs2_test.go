package ocfs2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecLen(t *testing.T) {
	tests := []struct {
		nameLen int
		want    int
	}{
		{0, 12},
		{1, 16},
		{2, 16},
		{4, 16},
		{5, 20},
		{255, 268},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RecLen(tt.nameLen), "RecLen(%d)", tt.nameLen)
		assert.True(t, IsAligned(RecLen(tt.nameLen)))
	}
	assert.Equal(t, 16, MinRecLen)
}

func TestValidBlockSize(t *testing.T) {
	tests := []struct {
		size int
		want bool
	}{
		{0, false},
		{256, false},
		{512, true},
		{1024, true},
		{1536, false},
		{2048, true},
		{4096, true},
		{8192, false},
		{65536, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidBlockSize(tt.size), "size %d", tt.size)
	}
}

func TestTypeByMode(t *testing.T) {
	tests := []struct {
		mode uint16
		want FileType
	}{
		{0o100644, FileTypeRegular},
		{0o040755, FileTypeDir},
		{0o120777, FileTypeSymlink},
		{0o020600, FileTypeCharDev},
		{0o060600, FileTypeBlockDev},
		{0o010600, FileTypeFifo},
		{0o140755, FileTypeSocket},
		{0o000644, FileTypeUnknown},
		{0o030000, FileTypeUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TypeByMode(tt.mode), "mode %o", tt.mode)
	}
}

func TestFileTypeString(t *testing.T) {
	assert.Equal(t, "directory", FileTypeDir.String())
	assert.Equal(t, "invalid(42)", FileType(42).String())
	assert.False(t, FileType(8).Valid())
	assert.True(t, FileTypeSymlink.Valid())
}

func TestDirEntryAccessors(t *testing.T) {
	block := make([]byte, 64)
	PutDirEntry(block, 16, 1234, 48, FileTypeRegular, "hello")

	d := EntryAt(block, 16)
	assert.Equal(t, uint64(1234), d.Inode())
	assert.Equal(t, 48, d.RecLen())
	assert.Equal(t, 5, d.NameLen())
	assert.Equal(t, FileTypeRegular, d.FileType())
	assert.Equal(t, []byte("hello"), d.Name())
	assert.Equal(t, 48, d.Left())

	d.Clear()
	assert.Zero(t, d.Inode())
	assert.Zero(t, d.NameLen())
	assert.Equal(t, FileTypeUnknown, d.FileType())
	assert.Equal(t, 48, d.RecLen())
}

func TestDirEntryNameClipsToBuffer(t *testing.T) {
	block := make([]byte, 20)
	d := EntryAt(block, 0)
	d.SetNameLen(200)

	assert.Len(t, d.Name(), 8)
}

func TestInodeHeader(t *testing.T) {
	block := make([]byte, 512)
	EncodeInodeHeader(block, InodeHeader{Mode: 0o040755})

	h, err := DecodeInodeHeader(block)
	require.NoError(t, err)
	assert.Equal(t, FileTypeDir, h.Type())

	_, err = DecodeInodeHeader(make([]byte, 512))
	assert.ErrorIs(t, err, ErrBadInodeSignature)

	_, err = DecodeInodeHeader(block[:10])
	assert.Error(t, err)
}
