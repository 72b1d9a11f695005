package config

import (
	"context"
	"fmt"
	"os"

	"github.com/Byte-Jerry/ocfs2-tools/internal/logger"
	"github.com/Byte-Jerry/ocfs2-tools/internal/ratelimiter"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/device"
	deviceFs "github.com/Byte-Jerry/ocfs2-tools/pkg/device/fs"
	deviceMemory "github.com/Byte-Jerry/ocfs2-tools/pkg/device/memory"
	deviceS3 "github.com/Byte-Jerry/ocfs2-tools/pkg/device/s3"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
	stateBadger "github.com/Byte-Jerry/ocfs2-tools/pkg/state/badger"
	stateMemory "github.com/Byte-Jerry/ocfs2-tools/pkg/state/memory"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"
)

// CreateDevice creates a block device based on configuration.
//
// This factory function uses the Type field to determine which device
// implementation to create, then decodes the type-specific configuration
// from the corresponding map and passes it to the device's constructor.
// When MaxReadsPerSecond is set the device is wrapped in a throttle.
//
// Supported types:
//   - "filesystem": pkg/device/fs (image file or block device node)
//   - "memory": pkg/device/memory (image loaded into memory, repairs never reach disk)
//   - "s3": pkg/device/s3 (read-only image stored as an S3 object)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Device configuration
//   - blockSize: Filesystem block size in bytes
//   - writable: Whether repaired blocks may be written back
//
// Returns:
//   - device.BlockDevice: Initialized device
//   - error: Configuration or initialization error
func CreateDevice(ctx context.Context, cfg *DeviceConfig, blockSize int, writable bool) (device.BlockDevice, error) {
	var (
		dev device.BlockDevice
		err error
	)

	switch cfg.Type {
	case "filesystem":
		dev, err = createFilesystemDevice(ctx, cfg.Filesystem, blockSize, writable)
	case "memory":
		dev, err = createMemoryDevice(ctx, cfg.Memory, blockSize)
	case "s3":
		dev, err = createS3Device(ctx, cfg.S3, blockSize)
	default:
		return nil, fmt.Errorf("unknown device type: %q (supported: filesystem, memory, s3)", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if cfg.MaxReadsPerSecond > 0 {
		logger.Debug("Device I/O limited to %d blocks/s (burst %d)", cfg.MaxReadsPerSecond, cfg.Burst)
		dev = device.Throttle(dev, ratelimiter.New(cfg.MaxReadsPerSecond, cfg.Burst))
	}

	return dev, nil
}

// createFilesystemDevice opens an image file or device node.
func createFilesystemDevice(ctx context.Context, options map[string]any, blockSize int, writable bool) (device.BlockDevice, error) {
	var devCfg deviceFs.FileDeviceConfig
	if err := mapstructure.Decode(options, &devCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem device config: %w", err)
	}

	if devCfg.Path == "" {
		return nil, fmt.Errorf("filesystem device: path is required")
	}
	if !writable {
		devCfg.ReadOnly = true
	}

	dev, err := deviceFs.NewFileDevice(ctx, devCfg, blockSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem device: %w", err)
	}

	return dev, nil
}

// createMemoryDevice loads an image into memory, or creates a blank device
// when no image is given.
func createMemoryDevice(ctx context.Context, options map[string]any, blockSize int) (device.BlockDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type MemoryDeviceOptions struct {
		Image  string `mapstructure:"image"`
		Blocks uint64 `mapstructure:"blocks"`
	}

	var devOpts MemoryDeviceOptions
	if err := mapstructure.Decode(options, &devOpts); err != nil {
		return nil, fmt.Errorf("failed to decode memory device options: %w", err)
	}

	if devOpts.Image == "" {
		if devOpts.Blocks == 0 {
			return nil, fmt.Errorf("memory device: image or blocks is required")
		}
		return deviceMemory.NewMemoryDevice(blockSize, devOpts.Blocks), nil
	}

	image, err := os.ReadFile(devOpts.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", devOpts.Image, err)
	}
	if len(image)%blockSize != 0 {
		logger.Warn("Image %s is not a multiple of %d bytes, trailing partial block ignored", devOpts.Image, blockSize)
	}

	return deviceMemory.NewMemoryDeviceFromImage(blockSize, image), nil
}

// createS3Device creates a read-only device over an S3 object.
func createS3Device(ctx context.Context, options map[string]any, blockSize int) (device.BlockDevice, error) {
	type S3DeviceOptions struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		Key             string `mapstructure:"key"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var devOpts S3DeviceOptions
	if err := mapstructure.Decode(options, &devOpts); err != nil {
		return nil, fmt.Errorf("failed to decode S3 device config: %w", err)
	}

	if devOpts.Bucket == "" {
		return nil, fmt.Errorf("S3 device: bucket is required")
	}
	if devOpts.Key == "" {
		return nil, fmt.Errorf("S3 device: key is required")
	}
	if devOpts.Region == "" {
		return nil, fmt.Errorf("S3 device: region is required")
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(devOpts.Region))

	// Set credentials if provided, otherwise use default credential chain
	if devOpts.AccessKeyID != "" && devOpts.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			devOpts.AccessKeyID,
			devOpts.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := devOpts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// MinIO, Localstack and friends
		if devOpts.Endpoint != "" {
			o.BaseEndpoint = aws.String(devOpts.Endpoint)
			o.UsePathStyle = true
		}
	})

	// ========================================================================
	// Step 3: Create S3 Device
	// ========================================================================

	dev, err := deviceS3.NewS3Device(ctx, deviceS3.S3DeviceConfig{
		Client: client,
		Bucket: devOpts.Bucket,
		Key:    devOpts.Key,
	}, blockSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 device: %w", err)
	}

	logger.Info("S3 device initialized: bucket=%s, key=%s, region=%s, blocks=%d",
		devOpts.Bucket, devOpts.Key, devOpts.Region, dev.Blocks())

	return dev, nil
}

// CreateStateStore creates a scan state store based on configuration.
//
// Supported types:
//   - "memory": pkg/state/memory (ephemeral, lost when the process exits)
//   - "badger": pkg/state/badger (BadgerDB, persistent across invocations)
func CreateStateStore(ctx context.Context, cfg *StateConfig) (state.Store, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryStateStore(ctx)
	case "badger":
		return createBadgerStateStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown state store type: %q (supported: memory, badger)", cfg.Type)
	}
}

// createMemoryStateStore creates an in-memory state store.
func createMemoryStateStore(ctx context.Context) (state.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return stateMemory.NewMemoryStateStore(), nil
}

// createBadgerStateStore creates a BadgerDB-based persistent state store.
func createBadgerStateStore(ctx context.Context, options map[string]any) (state.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var storeCfg stateBadger.BadgerStateStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger state store config: %w", err)
	}

	if storeCfg.DBPath == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger state store: db_path is required")
	}

	if storeCfg.DBPath != "" && !storeCfg.InMemory {
		if err := os.MkdirAll(storeCfg.DBPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create state directory %s: %w", storeCfg.DBPath, err)
		}
	}

	store, err := stateBadger.NewBadgerStateStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger state store: %w", err)
	}

	return store, nil
}
