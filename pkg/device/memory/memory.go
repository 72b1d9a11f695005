package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/device"
)

// MemoryDevice is an in-memory image. Tests use it to build directory
// blocks and inodes and to inject read failures.
type MemoryDevice struct {
	mu        sync.RWMutex
	blockSize int
	data      []byte
	failReads map[uint64]error
	readOnly  bool
	writes    int
}

// NewMemoryDevice creates a zero-filled image of nblocks blocks.
func NewMemoryDevice(blockSize int, nblocks uint64) *MemoryDevice {
	return &MemoryDevice{
		blockSize: blockSize,
		data:      make([]byte, uint64(blockSize)*nblocks),
		failReads: make(map[uint64]error),
	}
}

// NewMemoryDeviceFromImage wraps an existing image. The slice is used
// directly; trailing bytes beyond the last whole block are ignored.
func NewMemoryDeviceFromImage(blockSize int, image []byte) *MemoryDevice {
	whole := len(image) / blockSize * blockSize
	return &MemoryDevice{
		blockSize: blockSize,
		data:      image[:whole],
		failReads: make(map[uint64]error),
	}
}

func (d *MemoryDevice) BlockSize() int {
	return d.blockSize
}

// Blocks returns the number of blocks in the image.
func (d *MemoryDevice) Blocks() uint64 {
	return uint64(len(d.data) / d.blockSize)
}

// SetReadOnly makes WriteBlock fail with device.ErrReadOnly.
func (d *MemoryDevice) SetReadOnly(ro bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readOnly = ro
}

// FailRead makes every read of blkno return err. A nil err clears it.
func (d *MemoryDevice) FailRead(blkno uint64, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.failReads, blkno)
		return
	}
	d.failReads[blkno] = err
}

// Block returns the live bytes of block blkno.
func (d *MemoryDevice) Block(blkno uint64) []byte {
	off := blkno * uint64(d.blockSize)
	return d.data[off : off+uint64(d.blockSize)]
}

// Writes returns how many blocks were written.
func (d *MemoryDevice) Writes() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.writes
}

func (d *MemoryDevice) ReadBlock(ctx context.Context, blkno uint64, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := device.CheckBuffer(d, buf); err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if err, ok := d.failReads[blkno]; ok {
		return fmt.Errorf("block %d: %w", blkno, err)
	}
	if blkno >= d.Blocks() {
		return fmt.Errorf("block %d of %d: %w", blkno, d.Blocks(), device.ErrOutOfRange)
	}
	copy(buf, d.Block(blkno))
	return nil
}

func (d *MemoryDevice) WriteBlock(ctx context.Context, blkno uint64, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := device.CheckBuffer(d, buf); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.readOnly {
		return device.ErrReadOnly
	}
	if blkno >= d.Blocks() {
		return fmt.Errorf("block %d of %d: %w", blkno, d.Blocks(), device.ErrOutOfRange)
	}
	copy(d.Block(blkno), buf)
	d.writes++
	return nil
}

func (d *MemoryDevice) Close() error {
	return nil
}
