package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"

	"github.com/jmgilman/go/flashfs/errors"
	"github.com/jmgilman/go/flashfs/storage"
)

const (
	defaultBlockSize        = 4096
	defaultEraseConcurrency = 10
)

// Device is a storage device whose blocks are objects in a bucket.
// A missing object reads as an erased block.
type Device struct {
	client           *minio.Client
	bucket           string
	prefix           string
	size             int64
	blockSize        int64
	eraseConcurrency int
	port             *storage.Dataport
}

// New creates a MinIO-backed device transferring through port.
func New(cfg Config, port *storage.Dataport) (*Device, error) {
	if cfg.BlockSize == 0 {
		cfg.BlockSize = defaultBlockSize
	}
	if cfg.MaxEraseConcurrency == 0 {
		cfg.MaxEraseConcurrency = defaultEraseConcurrency
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidParameter, "failed to create minio client")
		}
	}

	return &Device{
		client:           client,
		bucket:           cfg.Bucket,
		prefix:           normalizePrefix(cfg.Prefix),
		size:             cfg.Size,
		blockSize:        cfg.BlockSize,
		eraseConcurrency: cfg.MaxEraseConcurrency,
		port:             port,
	}, nil
}

func (d *Device) Dataport() *storage.Dataport {
	return d.port
}

func (d *Device) Read(addr, length int64) (int64, error) {
	if err := storage.CheckRange(addr, length, d.size, d.port); err != nil {
		return 0, err
	}

	ctx := context.Background()
	buf := d.port.Buf()[:length]
	for _, s := range d.spans(addr, length) {
		if err := d.readSpan(ctx, s, buf[s.addr-addr:s.addr-addr+s.length]); err != nil {
			return s.addr - addr, err
		}
	}
	return length, nil
}

func (d *Device) Write(addr, length int64) (int64, error) {
	if err := storage.CheckRange(addr, length, d.size, d.port); err != nil {
		return 0, err
	}

	ctx := context.Background()
	src := d.port.Buf()[:length]
	for _, s := range d.spans(addr, length) {
		block, err := d.fetchBlock(ctx, s.block)
		if err != nil {
			return s.addr - addr, err
		}
		copy(block[s.offset:s.offset+s.length], src[s.addr-addr:])
		if err := d.putBlock(ctx, s.block, block); err != nil {
			return s.addr - addr, err
		}
	}
	return length, nil
}

// Erase removes fully covered block objects concurrently and rewrites
// partially covered blocks with erased bytes.
func (d *Device) Erase(addr, length int64) (int64, error) {
	if err := storage.CheckRange(addr, length, d.size, nil); err != nil {
		return 0, err
	}

	eg, egCtx := errgroup.WithContext(context.Background())
	eg.SetLimit(d.eraseConcurrency)

	for _, s := range d.spans(addr, length) {
		eg.Go(func() error {
			if s.length == d.blockSize {
				err := d.client.RemoveObject(egCtx, d.bucket, d.key(s.block), minio.RemoveObjectOptions{})
				return d.translate(err, "remove", s.block)
			}
			block, err := d.fetchBlock(egCtx, s.block)
			if err != nil {
				return err
			}
			copy(block[s.offset:s.offset+s.length], bytes.Repeat([]byte{storage.ErasedByte}, int(s.length)))
			return d.putBlock(egCtx, s.block, block)
		})
	}

	if err := eg.Wait(); err != nil {
		return 0, err
	}
	return length, nil
}

func (d *Device) Size() (int64, error) {
	return d.size, nil
}

// State reports the device ready when the bucket is reachable.
func (d *Device) State() (storage.State, error) {
	ok, err := d.client.BucketExists(context.Background(), d.bucket)
	if err != nil {
		return 0, d.translate(err, "bucket-exists", -1)
	}
	if !ok {
		return 0, errors.WithContext(errors.New(errors.CodeNotFound, "bucket does not exist"), "bucket", d.bucket)
	}
	return storage.StateReady, nil
}

// span is the part of a transfer that falls inside one block.
type span struct {
	block  int64
	offset int64
	addr   int64
	length int64
}

// spans splits [addr, addr+length) at block boundaries.
func (d *Device) spans(addr, length int64) []span {
	var out []span
	for end := addr + length; addr < end; {
		block := addr / d.blockSize
		offset := addr % d.blockSize
		n := min(d.blockSize-offset, end-addr)
		out = append(out, span{block: block, offset: offset, addr: addr, length: n})
		addr += n
	}
	return out
}

func (d *Device) key(block int64) string {
	name := fmt.Sprintf("block-%08d", block)
	if d.prefix == "" {
		return name
	}
	return path.Join(d.prefix, name)
}

// readSpan reads one span with a range request, substituting erased bytes
// for a missing object.
func (d *Device) readSpan(ctx context.Context, s span, dst []byte) error {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(s.offset, s.offset+s.length-1); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "invalid range")
	}

	obj, err := d.client.GetObject(ctx, d.bucket, d.key(s.block), opts)
	if err != nil {
		return d.translate(err, "get", s.block)
	}
	defer func() { _ = obj.Close() }()

	if _, err := io.ReadFull(obj, dst); err != nil {
		if isNoSuchKey(err) {
			fillErased(dst)
			return nil
		}
		return d.translate(err, "get", s.block)
	}
	return nil
}

// fetchBlock returns the full contents of a block.
func (d *Device) fetchBlock(ctx context.Context, block int64) ([]byte, error) {
	buf := make([]byte, d.blockSize)
	obj, err := d.client.GetObject(ctx, d.bucket, d.key(block), minio.GetObjectOptions{})
	if err != nil {
		return nil, d.translate(err, "get", block)
	}
	defer func() { _ = obj.Close() }()

	if _, err := io.ReadFull(obj, buf); err != nil {
		if isNoSuchKey(err) {
			fillErased(buf)
			return buf, nil
		}
		return nil, d.translate(err, "get", block)
	}
	return buf, nil
}

func (d *Device) putBlock(ctx context.Context, block int64, data []byte) error {
	_, err := d.client.PutObject(ctx, d.bucket, d.key(block), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	return d.translate(err, "put", block)
}

// translate converts MinIO errors to device errors. Network failures are
// retryable; everything else is permanent.
func (d *Device) translate(err error, op string, block int64) error {
	if err == nil {
		return nil
	}

	ctx := map[string]interface{}{"bucket": d.bucket, "op": op}
	if block >= 0 {
		ctx["block"] = block
	}

	switch minio.ToErrorResponse(err).Code {
	case "NoSuchBucket":
		return errors.WithContextMap(errors.Wrap(err, errors.CodeNotFound, "bucket does not exist"), ctx)
	case "AccessDenied":
		return errors.WithContextMap(errors.Wrap(err, errors.CodeNotSupported, "access denied"), ctx)
	case "":
		return errors.WithContextMap(errors.Wrap(err, errors.CodeUnavailable, "object storage unreachable"), ctx)
	case "SlowDown", "RequestTimeout", "InternalError", "ServiceUnavailable":
		err = errors.Wrapf(err, errors.CodeGeneric, "object %s failed", op)
		return errors.WithContextMap(errors.WithClassification(err, errors.ClassificationRetryable), ctx)
	}
	return errors.WithContextMap(errors.Wrapf(err, errors.CodeGeneric, "object %s failed", op), ctx)
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func fillErased(p []byte) {
	for i := range p {
		p[i] = storage.ErasedByte
	}
}

// normalizePrefix converts backslashes and trims surrounding slashes.
// Returns an empty string for "." and "".
func normalizePrefix(prefix string) string {
	if prefix == "" || prefix == "." {
		return ""
	}
	prefix = path.Clean(strings.ReplaceAll(prefix, "\\", "/"))
	prefix = strings.Trim(prefix, "/")
	if prefix == "." {
		return ""
	}
	return prefix
}

var _ storage.Device = (*Device)(nil)
