package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/device"
)

// fakeObjects serves one in-memory object.
type fakeObjects struct {
	data   []byte
	ranges []string
}

func (f *fakeObjects) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if aws.ToString(in.Key) != "image" {
		return nil, errors.New("NotFound")
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(f.data)))}, nil
}

func (f *fakeObjects) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	rng := aws.ToString(in.Range)
	f.ranges = append(f.ranges, rng)

	var start, end int
	if _, err := fmt.Sscanf(rng, "bytes=%d-%d", &start, &end); err != nil {
		return nil, err
	}
	if end >= len(f.data) {
		end = len(f.data) - 1
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.data[start : end+1]))}, nil
}

func TestS3Device(t *testing.T) {
	ctx := context.Background()
	data := make([]byte, 3*512)
	data[512] = 0x11
	fake := &fakeObjects{data: data}

	dev, err := NewS3Device(ctx, S3DeviceConfig{Client: fake, Bucket: "b", Key: "image"}, 512)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), dev.Blocks())

	buf := make([]byte, 512)
	require.NoError(t, dev.ReadBlock(ctx, 1, buf))
	assert.Equal(t, byte(0x11), buf[0])
	assert.Equal(t, []string{"bytes=512-1023"}, fake.ranges)

	assert.ErrorIs(t, dev.ReadBlock(ctx, 3, buf), device.ErrOutOfRange)
	assert.ErrorIs(t, dev.WriteBlock(ctx, 0, buf), device.ErrReadOnly)
}

func TestNewS3Device_Errors(t *testing.T) {
	ctx := context.Background()
	fake := &fakeObjects{data: make([]byte, 512)}

	_, err := NewS3Device(ctx, S3DeviceConfig{Bucket: "b", Key: "image"}, 512)
	assert.Error(t, err)

	_, err = NewS3Device(ctx, S3DeviceConfig{Client: fake, Bucket: "b"}, 512)
	assert.Error(t, err)

	_, err = NewS3Device(ctx, S3DeviceConfig{Client: fake, Bucket: "b", Key: "missing"}, 512)
	assert.Error(t, err)
}
