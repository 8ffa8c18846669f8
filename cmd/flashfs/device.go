package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/jmgilman/go/flashfs/config"
	"github.com/jmgilman/go/flashfs/errors"
	"github.com/jmgilman/go/flashfs/storage"
	"github.com/jmgilman/go/flashfs/storage/billy"
	"github.com/jmgilman/go/flashfs/storage/minio"
)

// loadSpec reads the configuration file if one was given and applies the
// flags set on the command line on top of it.
func loadSpec(ctx context.Context, o options) (*config.Spec, error) {
	spec := &config.Spec{
		Type:   o.fsType,
		Device: config.DeviceSpec{Kind: "image", Dataport: o.dataport},
	}
	if o.config != "" {
		path, err := filepath.Abs(o.config)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, "invalid configuration path")
		}
		spec, err = config.NewLoader(osfs.New(filepath.Dir(path))).LoadFile(ctx, filepath.Base(path))
		if err != nil {
			return nil, err
		}
	}

	if o.config == "" || o.set["type"] {
		spec.Type = o.fsType
	}
	if o.config == "" || o.set["size"] {
		size, err := parseSize(o.size, "size")
		if err != nil {
			return nil, err
		}
		spec.Size = size
	}
	if o.config == "" || o.set["capacity"] {
		capacity, err := parseSize(o.capacity, "capacity")
		if err != nil {
			return nil, err
		}
		spec.Device.Capacity = capacity
	}
	if o.config == "" && !o.set["capacity"] && exists(o.image) {
		// Adopt the size of the existing image.
		spec.Device.Capacity = 0
	}
	if o.config == "" || o.set["image"] {
		spec.Device.Kind = "image"
		spec.Device.Path = o.image
	}
	if o.config == "" || o.set["dataport"] {
		spec.Device.Dataport = o.dataport
	}
	return spec, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var noClose = closerFunc(func() error { return nil })

func parseSize(s, what string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, errors.WithContext(
			errors.Wrapf(err, errors.CodeInvalidParameter, "invalid %s %q", what, s),
			"flag", what,
		)
	}
	return int64(n), nil
}

// openDevice opens the storage device described by spec. The returned
// closer releases it.
func openDevice(spec config.DeviceSpec) (storage.Device, io.Closer, error) {
	if spec.Dataport <= 0 {
		return nil, nil, errors.Newf(errors.CodeInvalidParameter, "invalid dataport size %d", spec.Dataport)
	}
	port := storage.NewDataport(spec.Dataport)

	switch spec.Kind {
	case "memory":
		return storage.NewMemory(spec.Capacity, port), noClose, nil
	case "image":
		path, err := filepath.Abs(spec.Path)
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.CodeInvalidParameter, "invalid image path")
		}
		dev, err := billy.Open(osfs.New(filepath.Dir(path)), filepath.Base(path), spec.Capacity, port)
		if err != nil {
			return nil, nil, err
		}
		return dev, dev, nil
	case "minio":
		dev, err := minio.New(minio.Config{
			Endpoint:  spec.Endpoint,
			Bucket:    spec.Bucket,
			AccessKey: spec.AccessKey,
			SecretKey: spec.SecretKey,
			UseSSL:    spec.UseSSL,
			Prefix:    spec.Prefix,
			Size:      spec.Capacity,
			BlockSize: spec.BlockSize,
		}, port)
		if err != nil {
			return nil, nil, err
		}
		return dev, noClose, nil
	default:
		return nil, nil, errors.Newf(errors.CodeInvalidParameter, "unknown device kind %q", spec.Kind)
	}
}
