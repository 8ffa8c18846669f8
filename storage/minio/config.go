// Package minio provides a storage device that keeps each erase block of a
// flash image as an object in a MinIO/S3-compatible bucket.
package minio

import (
	"github.com/minio/minio-go/v7"

	"github.com/jmgilman/go/flashfs/errors"
)

// Config holds MinIO device configuration.
type Config struct {
	// Endpoint is the MinIO server address (e.g., "localhost:9000")
	Endpoint string

	// Bucket is the bucket holding the block objects
	Bucket string

	// AccessKey is the access key ID for authentication
	AccessKey string

	// SecretKey is the secret access key for authentication
	SecretKey string

	// UseSSL enables HTTPS connections
	UseSSL bool

	// Prefix namespaces the block objects of one image
	Prefix string

	// Client is an optional pre-configured MinIO client
	// If provided, Endpoint/AccessKey/SecretKey are ignored
	Client *minio.Client

	// Size is the device capacity in bytes; must be a multiple of BlockSize
	Size int64

	// BlockSize is the size of one block object
	// Default: 4096
	BlockSize int64

	// MaxEraseConcurrency limits concurrent object removals during erase
	// Default: 10
	MaxEraseConcurrency int
}

// validate checks if the configuration is valid.
// Either Client OR (Endpoint + AccessKey + SecretKey) must be provided.
func (c *Config) validate() error {
	if c.Bucket == "" {
		return errors.New(errors.CodeInvalidParameter, "bucket is required")
	}
	if c.Size <= 0 {
		return errors.New(errors.CodeInvalidParameter, "device size is required")
	}
	if c.BlockSize <= 0 || c.Size%c.BlockSize != 0 {
		return errors.Newf(errors.CodeInvalidParameter, "device size %d is not a multiple of block size %d", c.Size, c.BlockSize)
	}

	if c.Client != nil {
		return nil
	}

	if c.Endpoint == "" {
		return errors.New(errors.CodeInvalidParameter, "endpoint is required when client is not provided")
	}
	if c.AccessKey == "" {
		return errors.New(errors.CodeInvalidParameter, "access key is required when client is not provided")
	}
	if c.SecretKey == "" {
		return errors.New(errors.CodeInvalidParameter, "secret key is required when client is not provided")
	}

	return nil
}
