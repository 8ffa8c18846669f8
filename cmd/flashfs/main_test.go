package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/flashfs/errors"
)

func runCLI(t *testing.T, argv ...string) (string, error) {
	t.Helper()
	var stderr, out bytes.Buffer
	o, args, err := parseFlags(argv, &stderr)
	require.NoError(t, err, stderr.String())
	err = run(context.Background(), o, args, &out)
	return out.String(), err
}

func TestRun_Session(t *testing.T) {
	for _, typ := range []string{"littlefs", "fatfs", "spiffs"} {
		t.Run(typ, func(t *testing.T) {
			dir := t.TempDir()
			image := filepath.Join(dir, "flash.img")
			src := filepath.Join(dir, "hello.txt")
			require.NoError(t, os.WriteFile(src, []byte("hello flash"), 0o644))
			common := []string{"-image", image, "-type", typ, "-capacity", "512KiB"}

			out, err := runCLI(t, append(common, "format")...)
			require.NoError(t, err)
			assert.Contains(t, out, "formatted "+typ)

			info, err := os.Stat(image)
			require.NoError(t, err)
			assert.Equal(t, int64(512*1024), info.Size())

			_, err = runCLI(t, append(common, "put", src, "hello.txt")...)
			require.NoError(t, err)

			out, err = runCLI(t, append(common, "stat", "hello.txt")...)
			require.NoError(t, err)
			assert.Contains(t, out, "hello.txt\t11\t")

			out, err = runCLI(t, append(common, "get", "hello.txt")...)
			require.NoError(t, err)
			assert.Equal(t, "hello flash", out)

			dst := filepath.Join(dir, "copy.txt")
			_, err = runCLI(t, append(common, "get", "hello.txt", dst)...)
			require.NoError(t, err)
			data, err := os.ReadFile(dst)
			require.NoError(t, err)
			assert.Equal(t, "hello flash", string(data))

			_, err = runCLI(t, append(common, "rm", "hello.txt")...)
			require.NoError(t, err)
			_, err = runCLI(t, append(common, "stat", "hello.txt")...)
			assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
		})
	}
}

func TestRun_AdoptsImageSize(t *testing.T) {
	image := filepath.Join(t.TempDir(), "flash.img")
	_, err := runCLI(t, "-image", image, "-capacity", "128KiB", "format")
	require.NoError(t, err)

	out, err := runCLI(t, "-image", image, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "storage:   128 KiB")
}

func TestRun_Config(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "flash.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
type: fatfs
size: 256KiB
fatfs:
  sectorSize: 512
device:
  kind: image
  path: `+filepath.Join(dir, "fat.img")+`
  capacity: 512KiB
  dataport: 512
`), 0o644))

	_, err := runCLI(t, "-config", cfg, "format")
	require.NoError(t, err)

	out, err := runCLI(t, "-config", cfg, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "type:      fatfs")
	assert.Contains(t, out, "size:      256 KiB (262,144 bytes)")
	assert.Contains(t, out, "dataport:  512 B")
}

func TestRun_Stats(t *testing.T) {
	image := filepath.Join(t.TempDir(), "flash.img")
	out, err := runCLI(t, "-image", image, "-stats", "format")
	require.NoError(t, err)
	assert.Contains(t, out, `flashfs_storage_ops_total{device=image,op=erase}`)
	assert.Contains(t, out, `flashfs_storage_ops_total{device=image,op=write}`)
}

func TestRun_Errors(t *testing.T) {
	image := filepath.Join(t.TempDir(), "flash.img")

	tests := []struct {
		name     string
		argv     []string
		wantCode errors.ErrorCode
	}{
		{"unknown command", []string{"-image", image, "defrag"}, errors.CodeInvalidParameter},
		{"missing argument", []string{"-image", image, "rm"}, errors.CodeInvalidParameter},
		{"bad size", []string{"-image", image, "-size", "huge", "info"}, errors.CodeInvalidParameter},
		{"unknown type", []string{"-image", image, "-type", "ntfs", "format"}, errors.CodeInvalidConfig},
		{"unformatted", []string{"-image", image, "info"}, errors.CodeNotFound},
		{"spiffs wipe", []string{"-image", image, "-type", "spiffs", "wipe"}, errors.CodeNotSupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.argv...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.GetCode(err))
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		command string
		want    int
	}{
		{"unknown command", errors.New(errors.CodeInvalidParameter, "unknown command"), "defrag", exitUsage},
		{"bad argument", errors.New(errors.CodeInvalidParameter, "missing name"), "rm", exitFailure},
		{"not found", errors.New(errors.CodeNotFound, "no filesystem"), "info", exitFailure},
		{"unavailable", errors.New(errors.CodeUnavailable, "object storage unreachable"), "put", exitTempFail},
		{"throttled", errors.WithClassification(errors.New(errors.CodeGeneric, "slow down"), errors.ClassificationRetryable), "get", exitTempFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err, tt.command))
		})
	}
}
