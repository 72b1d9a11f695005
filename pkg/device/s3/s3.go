// Package s3 serves a filesystem image stored as a single S3 object.
//
// Blocks are fetched with ranged GETs. The device is read-only: a check
// against an object image reports problems but never writes fixes back.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Byte-Jerry/ocfs2-tools/internal/logger"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/device"
)

// ObjectAPI is the subset of *s3.Client used by the device.
type ObjectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3DeviceConfig contains configuration for an S3 image.
type S3DeviceConfig struct {
	// Client is the configured S3 client.
	Client ObjectAPI

	// Bucket holding the image.
	Bucket string

	// Key of the image object.
	Key string
}

// S3Device implements device.BlockDevice over an S3 object.
type S3Device struct {
	client    ObjectAPI
	bucket    string
	key       string
	blockSize int
	blocks    uint64
}

// NewS3Device verifies the object exists and sizes it.
func NewS3Device(ctx context.Context, cfg S3DeviceConfig, blockSize int) (*S3Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("S3 device: bucket and key are required")
	}
	if blockSize <= 0 {
		return nil, fmt.Errorf("S3 device: invalid block size %d", blockSize)
	}

	head, err := cfg.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(cfg.Bucket),
		Key:    aws.String(cfg.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to stat image s3://%s/%s: %w", cfg.Bucket, cfg.Key, err)
	}

	size := aws.ToInt64(head.ContentLength)
	if size%int64(blockSize) != 0 {
		logger.Warn("Image s3://%s/%s size %d is not a multiple of block size %d",
			cfg.Bucket, cfg.Key, size, blockSize)
	}

	return &S3Device{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		key:       cfg.Key,
		blockSize: blockSize,
		blocks:    uint64(size) / uint64(blockSize),
	}, nil
}

func (d *S3Device) BlockSize() int {
	return d.blockSize
}

// Blocks returns the number of whole blocks in the object.
func (d *S3Device) Blocks() uint64 {
	return d.blocks
}

func (d *S3Device) ReadBlock(ctx context.Context, blkno uint64, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := device.CheckBuffer(d, buf); err != nil {
		return err
	}
	if blkno >= d.blocks {
		return fmt.Errorf("block %d of %d: %w", blkno, d.blocks, device.ErrOutOfRange)
	}

	start := blkno * uint64(d.blockSize)
	end := start + uint64(d.blockSize) - 1

	result, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", start, end)),
	})
	if err != nil {
		return fmt.Errorf("failed to read block %d from S3: %w", blkno, err)
	}
	defer func() { _ = result.Body.Close() }()

	if _, err := io.ReadFull(result.Body, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return fmt.Errorf("block %d: %w", blkno, device.ErrShortRead)
		}
		return fmt.Errorf("failed to read block %d body: %w", blkno, err)
	}
	return nil
}

// WriteBlock always fails: object images are checked read-only.
func (d *S3Device) WriteBlock(ctx context.Context, blkno uint64, buf []byte) error {
	return device.ErrReadOnly
}

func (d *S3Device) Close() error {
	return nil
}
