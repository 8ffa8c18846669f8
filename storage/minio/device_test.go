package minio

import (
	stderrors "errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/flashfs/errors"
	"github.com/jmgilman/go/flashfs/storage"
)

// TestConfig_Validate verifies required fields and alignment.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "credentials",
			cfg:  Config{Endpoint: "localhost:9000", Bucket: "b", AccessKey: "a", SecretKey: "s", Size: 8192, BlockSize: 4096},
		},
		{
			name:    "missing bucket",
			cfg:     Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Size: 8192, BlockSize: 4096},
			wantErr: true,
		},
		{
			name:    "missing endpoint",
			cfg:     Config{Bucket: "b", AccessKey: "a", SecretKey: "s", Size: 8192, BlockSize: 4096},
			wantErr: true,
		},
		{
			name:    "missing size",
			cfg:     Config{Endpoint: "localhost:9000", Bucket: "b", AccessKey: "a", SecretKey: "s", BlockSize: 4096},
			wantErr: true,
		},
		{
			name:    "misaligned size",
			cfg:     Config{Endpoint: "localhost:9000", Bucket: "b", AccessKey: "a", SecretKey: "s", Size: 5000, BlockSize: 4096},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.CodeInvalidParameter, errors.GetCode(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

// TestNew_Defaults verifies block size and concurrency defaults.
func TestNew_Defaults(t *testing.T) {
	dev, err := New(Config{
		Endpoint:  "localhost:9000",
		Bucket:    "flash",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Prefix:    "/images/dev0/",
		Size:      1 << 20,
	}, storage.NewDataport(4096))
	require.NoError(t, err)

	assert.Equal(t, int64(defaultBlockSize), dev.blockSize)
	assert.Equal(t, defaultEraseConcurrency, dev.eraseConcurrency)
	assert.Equal(t, "images/dev0/block-00000003", dev.key(3))

	size, err := dev.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), size)
}

// TestDevice_Spans verifies transfers are split at block boundaries.
func TestDevice_Spans(t *testing.T) {
	d := &Device{blockSize: 4096}

	assert.Equal(t, []span{{block: 0, offset: 100, addr: 100, length: 200}}, d.spans(100, 200))
	assert.Equal(t, []span{
		{block: 0, offset: 4000, addr: 4000, length: 96},
		{block: 1, offset: 0, addr: 4096, length: 4096},
		{block: 2, offset: 0, addr: 8192, length: 8},
	}, d.spans(4000, 4200))
	assert.Empty(t, d.spans(0, 0))
}

// TestNormalizePrefix verifies key prefixes are cleaned.
func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "", normalizePrefix(""))
	assert.Equal(t, "", normalizePrefix("."))
	assert.Equal(t, "", normalizePrefix("/"))
	assert.Equal(t, "a/b", normalizePrefix("\\a\\b\\"))
	assert.Equal(t, "a/c", normalizePrefix("a/b/../c"))
}

// TestDevice_Translate verifies MinIO errors map onto device error codes.
func TestDevice_Translate(t *testing.T) {
	d := &Device{bucket: "flash"}

	assert.Nil(t, d.translate(nil, "get", 0))

	err := d.translate(minio.ErrorResponse{Code: "NoSuchBucket"}, "get", 1)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))

	err = d.translate(minio.ErrorResponse{Code: "AccessDenied"}, "put", 1)
	assert.Equal(t, errors.CodeNotSupported, errors.GetCode(err))

	err = d.translate(stderrors.New("dial tcp: connection refused"), "put", 1)
	assert.Equal(t, errors.CodeUnavailable, errors.GetCode(err))
	assert.True(t, errors.IsRetryable(err))

	var pe errors.PlatformError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, int64(1), pe.Context()["block"])

	err = d.translate(minio.ErrorResponse{Code: "SlowDown"}, "get", 2)
	assert.Equal(t, errors.CodeGeneric, errors.GetCode(err))
	assert.Equal(t, errors.ClassificationRetryable, errors.GetClassification(err))

	err = d.translate(minio.ErrorResponse{Code: "InvalidRange"}, "get", 2)
	assert.Equal(t, errors.ClassificationPermanent, errors.GetClassification(err))
}
