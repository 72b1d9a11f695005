// Package device provides block-level access to a filesystem image.
//
// Implementations:
//   - fs: a local block device or image file
//   - memory: an in-memory image, used by tests
//   - s3: an image stored as an S3 object, read with ranged GETs (read-only)
//
// Every implementation addresses the image in fixed-size blocks. Block
// numbers are filesystem block numbers; byte-order swabbing is the
// caller's concern.
package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Byte-Jerry/ocfs2-tools/internal/ratelimiter"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/ocfs2"
)

var (
	// ErrReadOnly is returned by WriteBlock on devices opened read-only.
	ErrReadOnly = errors.New("device is read-only")

	// ErrOutOfRange is returned for block numbers past the end of the image.
	ErrOutOfRange = errors.New("block out of range")

	// ErrShortRead is returned when fewer than BlockSize bytes were read.
	ErrShortRead = errors.New("short read")

	// ErrBufferSize is returned when a buffer is not exactly one block.
	ErrBufferSize = errors.New("buffer is not one block")
)

// BlockDevice reads and writes whole blocks.
type BlockDevice interface {
	// BlockSize returns the block size in bytes.
	BlockSize() int

	// ReadBlock fills buf (exactly BlockSize bytes) with block blkno.
	ReadBlock(ctx context.Context, blkno uint64, buf []byte) error

	// WriteBlock writes buf (exactly BlockSize bytes) to block blkno.
	WriteBlock(ctx context.Context, blkno uint64, buf []byte) error

	// Close releases the device.
	Close() error
}

// CheckBuffer validates that buf is exactly one block.
func CheckBuffer(dev BlockDevice, buf []byte) error {
	if len(buf) != dev.BlockSize() {
		return fmt.Errorf("%w: got %d bytes, block size %d", ErrBufferSize, len(buf), dev.BlockSize())
	}
	return nil
}

// InodeReader reads inode headers. In OCFS2 an inode number is the block
// number of the inode.
type InodeReader struct {
	dev BlockDevice
	buf []byte
}

// NewInodeReader creates an InodeReader with its own block buffer.
func NewInodeReader(dev BlockDevice) *InodeReader {
	return &InodeReader{
		dev: dev,
		buf: make([]byte, dev.BlockSize()),
	}
}

// ReadInode reads and decodes the header of inode ino.
func (r *InodeReader) ReadInode(ctx context.Context, ino uint64) (ocfs2.InodeHeader, error) {
	if err := r.dev.ReadBlock(ctx, ino, r.buf); err != nil {
		return ocfs2.InodeHeader{}, fmt.Errorf("failed to read inode %d: %w", ino, err)
	}

	h, err := ocfs2.DecodeInodeHeader(r.buf)
	if err != nil {
		return ocfs2.InodeHeader{}, fmt.Errorf("inode %d: %w", ino, err)
	}
	return h, nil
}

// throttledDevice delays every block operation until the limiter allows it.
type throttledDevice struct {
	BlockDevice
	limiter *ratelimiter.RateLimiter
}

// Throttle wraps dev so that reads and writes together never exceed the
// limiter's rate. A nil limiter returns dev unchanged.
func Throttle(dev BlockDevice, limiter *ratelimiter.RateLimiter) BlockDevice {
	if limiter == nil {
		return dev
	}
	return &throttledDevice{BlockDevice: dev, limiter: limiter}
}

func (d *throttledDevice) ReadBlock(ctx context.Context, blkno uint64, buf []byte) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	return d.BlockDevice.ReadBlock(ctx, blkno, buf)
}

func (d *throttledDevice) WriteBlock(ctx context.Context, blkno uint64, buf []byte) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	return d.BlockDevice.WriteBlock(ctx, blkno, buf)
}

// Metrics observes block operations.
type Metrics interface {
	// ObserveOperation records one "read" or "write" and its outcome.
	ObserveOperation(op string, d time.Duration, err error)
}

// instrumentedDevice reports every block operation to Metrics.
type instrumentedDevice struct {
	BlockDevice
	metrics Metrics
}

// Instrument wraps dev so that every block operation is timed. A nil
// Metrics returns dev unchanged.
func Instrument(dev BlockDevice, m Metrics) BlockDevice {
	if m == nil {
		return dev
	}
	return &instrumentedDevice{BlockDevice: dev, metrics: m}
}

func (d *instrumentedDevice) ReadBlock(ctx context.Context, blkno uint64, buf []byte) error {
	start := time.Now()
	err := d.BlockDevice.ReadBlock(ctx, blkno, buf)
	d.metrics.ObserveOperation("read", time.Since(start), err)
	return err
}

func (d *instrumentedDevice) WriteBlock(ctx context.Context, blkno uint64, buf []byte) error {
	start := time.Now()
	err := d.BlockDevice.WriteBlock(ctx, blkno, buf)
	d.metrics.ObserveOperation("write", time.Since(start), err)
	return err
}
