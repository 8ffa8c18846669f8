// Command flashfs manages flash filesystem images.
//
// Usage:
//
//	flashfs [flags] <command> [args]
//
// Commands:
//
//	format             create an empty filesystem
//	wipe               erase the filesystem region
//	info               print filesystem and storage details
//	put <src> <name>   copy a local file into the filesystem
//	get <name> [dst]   copy a file out of the filesystem (stdout without dst)
//	rm <name>          delete a file
//	stat <name>        print the size of a file
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmgilman/go/flashfs/errors"
)

func main() {
	opts, args, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}
	if len(args) == 0 {
		usage(os.Stderr)
		os.Exit(2)
	}

	if err := run(context.Background(), opts, args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "flashfs: %v\n", err)
		code := exitCode(err, args[0])
		if code == exitUsage {
			usage(os.Stderr)
		}
		os.Exit(code)
	}
}

const (
	exitFailure = 1
	exitUsage   = 2
	// exitTempFail is sysexits' EX_TEMPFAIL; the command may succeed if retried.
	exitTempFail = 75
)

func exitCode(err error, command string) int {
	switch {
	case errors.GetCode(err) == errors.CodeInvalidParameter && commands[command] == nil:
		return exitUsage
	case errors.GetClassification(err).IsRetryable():
		return exitTempFail
	default:
		return exitFailure
	}
}

type options struct {
	config   string
	image    string
	fsType   string
	size     string
	capacity string
	dataport int
	verbose  bool
	stats    bool

	// set records the flags given on the command line.
	set map[string]bool
}

func parseFlags(argv []string, stderr io.Writer) (options, []string, error) {
	var o options
	fs := flag.NewFlagSet("flashfs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }

	fs.StringVar(&o.config, "config", "", "configuration file (CUE, JSON or YAML)")
	fs.StringVar(&o.image, "image", "flash.img", "image file holding the storage contents")
	fs.StringVar(&o.fsType, "type", "littlefs", "filesystem type: littlefs, fatfs or spiffs")
	fs.StringVar(&o.size, "size", "0", "filesystem size, 0 for the whole storage")
	fs.StringVar(&o.capacity, "capacity", "1MiB", "storage capacity used when creating an image")
	fs.IntVar(&o.dataport, "dataport", 4096, "dataport size in bytes")
	fs.BoolVar(&o.verbose, "v", false, "log debug output")
	fs.BoolVar(&o.stats, "stats", false, "print storage operation counters on exit")

	if err := fs.Parse(argv); err != nil {
		return o, nil, err
	}
	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, fs.Args(), nil
}

func (o options) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func usage(w io.Writer) {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(w, "usage: %s [flags] <format|wipe|info|put|get|rm|stat> [args]\n", prog)
	fmt.Fprintln(w, "\nflags:")
	fmt.Fprintln(w, "  -config file     configuration file (CUE, JSON or YAML)")
	fmt.Fprintln(w, "  -image path      image file (default flash.img)")
	fmt.Fprintln(w, "  -type t          littlefs, fatfs or spiffs (default littlefs)")
	fmt.Fprintln(w, "  -size s          filesystem size, e.g. 512KiB (default whole storage)")
	fmt.Fprintln(w, "  -capacity s      capacity of a new image (default 1MiB)")
	fmt.Fprintln(w, "  -dataport n      dataport size in bytes (default 4096)")
	fmt.Fprintln(w, "  -stats           print storage operation counters")
	fmt.Fprintln(w, "  -v               verbose logging")
}
