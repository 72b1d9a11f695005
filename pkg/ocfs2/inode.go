package ocfs2

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// InodeSignature opens every valid inode block.
const InodeSignature = "INODE01"

const (
	inodeSignatureLen = 8
	inodeModeOff      = 0x28
	inodeMinLen       = inodeModeOff + 2
)

// ErrBadInodeSignature is returned when a block does not carry an inode.
var ErrBadInodeSignature = errors.New("bad inode signature")

// InodeHeader carries the inode fields the directory checker consults.
type InodeHeader struct {
	Mode uint16
}

// Type returns the directory entry type implied by the inode mode.
func (h InodeHeader) Type() FileType {
	return TypeByMode(h.Mode)
}

// DecodeInodeHeader parses the start of an inode block.
func DecodeInodeHeader(block []byte) (InodeHeader, error) {
	if len(block) < inodeMinLen {
		return InodeHeader{}, fmt.Errorf("inode block too short: %d bytes", len(block))
	}

	sig := block[:inodeSignatureLen]
	if !bytes.Equal(bytes.TrimRight(sig, "\x00"), []byte(InodeSignature)) {
		return InodeHeader{}, fmt.Errorf("%w: %q", ErrBadInodeSignature, sig)
	}

	return InodeHeader{
		Mode: binary.LittleEndian.Uint16(block[inodeModeOff:]),
	}, nil
}

// EncodeInodeHeader writes the signature and mode into block.
func EncodeInodeHeader(block []byte, h InodeHeader) {
	copy(block[:inodeSignatureLen], InodeSignature)
	binary.LittleEndian.PutUint16(block[inodeModeOff:], h.Mode)
}
