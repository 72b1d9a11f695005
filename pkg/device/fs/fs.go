package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/device"
)

// FileDevice implements device.BlockDevice on a local file or block
// device node.
type FileDevice struct {
	f         *os.File
	path      string
	blockSize int
	blocks    uint64
	readOnly  bool
}

// FileDeviceConfig contains configuration for opening a FileDevice.
type FileDeviceConfig struct {
	// Path is the image file or device node.
	Path string `mapstructure:"path"`

	// ReadOnly opens the image without write access.
	ReadOnly bool `mapstructure:"read_only"`
}

// NewFileDevice opens the image at cfg.Path with the given block size.
func NewFileDevice(ctx context.Context, cfg FileDeviceConfig, blockSize int) (*FileDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("filesystem device: path is required")
	}
	if blockSize <= 0 {
		return nil, fmt.Errorf("filesystem device: invalid block size %d", blockSize)
	}

	flag := os.O_RDWR
	if cfg.ReadOnly {
		flag = os.O_RDONLY
	}

	f, err := os.OpenFile(cfg.Path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open device %s: %w", cfg.Path, err)
	}

	// Seek works for both regular files and block device nodes, where
	// Stat reports a zero size.
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to size device %s: %w", cfg.Path, err)
	}

	return &FileDevice{
		f:         f,
		path:      cfg.Path,
		blockSize: blockSize,
		blocks:    uint64(size) / uint64(blockSize),
		readOnly:  cfg.ReadOnly,
	}, nil
}

func (d *FileDevice) BlockSize() int {
	return d.blockSize
}

// Blocks returns the number of whole blocks in the image.
func (d *FileDevice) Blocks() uint64 {
	return d.blocks
}

func (d *FileDevice) ReadBlock(ctx context.Context, blkno uint64, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := device.CheckBuffer(d, buf); err != nil {
		return err
	}
	if blkno >= d.blocks {
		return fmt.Errorf("block %d of %d: %w", blkno, d.blocks, device.ErrOutOfRange)
	}

	n, err := d.f.ReadAt(buf, int64(blkno)*int64(d.blockSize))
	if errors.Is(err, io.EOF) && n < len(buf) {
		return fmt.Errorf("block %d: %w", blkno, device.ErrShortRead)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read block %d from %s: %w", blkno, d.path, err)
	}
	return nil
}

func (d *FileDevice) WriteBlock(ctx context.Context, blkno uint64, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.readOnly {
		return device.ErrReadOnly
	}
	if err := device.CheckBuffer(d, buf); err != nil {
		return err
	}
	if blkno >= d.blocks {
		return fmt.Errorf("block %d of %d: %w", blkno, d.blocks, device.ErrOutOfRange)
	}

	if _, err := d.f.WriteAt(buf, int64(blkno)*int64(d.blockSize)); err != nil {
		return fmt.Errorf("failed to write block %d to %s: %w", blkno, d.path, err)
	}
	return nil
}

// Close syncs pending writes and closes the file.
func (d *FileDevice) Close() error {
	var syncErr error
	if !d.readOnly {
		syncErr = d.f.Sync()
	}
	if err := d.f.Close(); err != nil {
		return fmt.Errorf("failed to close device %s: %w", d.path, err)
	}
	if syncErr != nil {
		return fmt.Errorf("failed to sync device %s: %w", d.path, syncErr)
	}
	return nil
}
