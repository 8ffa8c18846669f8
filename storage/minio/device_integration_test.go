package minio

import (
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jmgilman/go/flashfs/storage"
)

// setupTestMinIO starts a MinIO container and returns a device on a fresh bucket.
func setupTestMinIO(t *testing.T, size int64, port *storage.Dataport) (*Device, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minioadmin",
			"MINIO_ROOT_PASSWORD": "minioadmin",
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
	}

	minioC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start MinIO container")

	endpoint, err := minioC.Endpoint(ctx, "")
	require.NoError(t, err, "failed to get container endpoint")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err, "failed to create MinIO client")

	require.NoError(t, client.MakeBucket(ctx, "flash", minio.MakeBucketOptions{}))

	dev, err := New(Config{
		Client:    client,
		Bucket:    "flash",
		Prefix:    "dev0",
		Size:      size,
		BlockSize: 4096,
	}, port)
	require.NoError(t, err, "failed to create device")

	return dev, func() { _ = minioC.Terminate(ctx) }
}

// TestIntegration_Device exercises reads, writes and erases against a real bucket.
func TestIntegration_Device(t *testing.T) {
	port := storage.NewDataport(8192)
	dev, cleanup := setupTestMinIO(t, 64*1024, port)
	defer cleanup()

	t.Run("state is ready", func(t *testing.T) {
		state, err := dev.State()
		require.NoError(t, err)
		assert.Equal(t, storage.StateReady, state)
	})

	t.Run("unwritten blocks read erased", func(t *testing.T) {
		_, err := dev.Read(0, 16)
		require.NoError(t, err)
		for _, b := range port.Buf()[:16] {
			require.Equal(t, byte(storage.ErasedByte), b)
		}
	})

	t.Run("write across a block boundary", func(t *testing.T) {
		data := []byte("spans two block objects")
		copy(port.Buf(), data)
		n, err := dev.Write(4090, int64(len(data)))
		require.NoError(t, err)
		assert.Equal(t, int64(len(data)), n)

		clear(port.Buf())
		_, err = dev.Read(4090, int64(len(data)))
		require.NoError(t, err)
		assert.Equal(t, data, port.Buf()[:len(data)])
	})

	t.Run("erase restores erased bytes", func(t *testing.T) {
		_, err := dev.Erase(0, 8192)
		require.NoError(t, err)

		_, err = dev.Read(4090, 16)
		require.NoError(t, err)
		for _, b := range port.Buf()[:16] {
			require.Equal(t, byte(storage.ErasedByte), b)
		}
	})
}
