package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/jmgilman/go/flashfs/errors"
	"github.com/jmgilman/go/flashfs/filesystem"
	"github.com/jmgilman/go/flashfs/storage"
	"github.com/jmgilman/go/flashfs/storage/metrics"
)

// command runs against an initialized filesystem.
type command struct {
	args  int
	mount bool
	run   func(s *session, args []string) error
}

var commands = map[string]*command{
	"format": {run: (*session).format},
	"wipe":   {run: (*session).wipe},
	"info":   {mount: true, run: (*session).info},
	"put":    {args: 2, mount: true, run: (*session).put},
	"get":    {args: 1, mount: true, run: (*session).get},
	"rm":     {args: 1, mount: true, run: (*session).rm},
	"stat":   {args: 1, mount: true, run: (*session).stat},
}

type session struct {
	fs  *filesystem.FileSystem
	dev storage.Device
	out io.Writer
}

func run(ctx context.Context, o options, args []string, out io.Writer) (err error) {
	cmd, ok := commands[args[0]]
	if !ok {
		return errors.Newf(errors.CodeInvalidParameter, "unknown command %q", args[0])
	}
	// get takes an optional destination.
	if n := len(args) - 1; n < cmd.args || n > cmd.args+boolToInt(args[0] == "get") {
		return errors.Newf(errors.CodeInvalidParameter, "%s expects %d arguments, got %d", args[0], cmd.args, n)
	}
	log := o.logger(os.Stderr)

	spec, err := loadSpec(ctx, o)
	if err != nil {
		return err
	}
	dev, closer, err := openDevice(spec.Device)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closer.Close()) }()

	var reg *prometheus.Registry
	if o.stats {
		reg = prometheus.NewRegistry()
		collectors, err := metrics.NewCollectors(reg)
		if err != nil {
			return err
		}
		dev = metrics.Wrap(dev, spec.Device.Kind, collectors)
		defer func() { err = multierr.Append(err, printStats(out, reg)) }()
	}

	cfg, err := spec.Config(storage.InterfaceOf(dev))
	if err != nil {
		return err
	}
	fs, err := filesystem.New(cfg, filesystem.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() {
		if fs.State() == filesystem.StateMounted {
			err = multierr.Append(err, fs.Unmount())
		}
		err = multierr.Append(err, fs.Free())
	}()

	if cmd.mount {
		if err := fs.Mount(); err != nil {
			return err
		}
	}
	s := &session{fs: fs, dev: dev, out: out}
	return cmd.run(s, args[1:])
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *session) format(_ []string) error {
	if err := s.fs.Format(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "formatted %s filesystem of %s\n", s.fs.Type(), humanize.IBytes(uint64(s.fs.Size())))
	return nil
}

func (s *session) wipe(_ []string) error {
	if err := s.fs.Wipe(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "wiped %s\n", humanize.IBytes(uint64(s.fs.Size())))
	return nil
}

func (s *session) info(_ []string) error {
	devSize, err := s.dev.Size()
	if err != nil {
		return err
	}
	state, err := s.dev.State()
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "type:      %s\n", s.fs.Type())
	fmt.Fprintf(s.out, "size:      %s (%s bytes)\n", humanize.IBytes(uint64(s.fs.Size())), humanize.Comma(s.fs.Size()))
	fmt.Fprintf(s.out, "storage:   %s\n", humanize.IBytes(uint64(devSize)))
	fmt.Fprintf(s.out, "dataport:  %s\n", humanize.IBytes(uint64(s.dev.Dataport().Size())))
	fmt.Fprintf(s.out, "read-only: %t\n", state&storage.StateReadOnly != 0)
	return nil
}

func (s *session) put(args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return errors.WithContext(errors.Wrap(err, errors.CodeNotFound, "failed to read source file"), "path", args[0])
	}
	if err := s.fs.WriteFile(args[1], data); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "wrote %s to %s\n", humanize.IBytes(uint64(len(data))), args[1])
	return nil
}

func (s *session) get(args []string) error {
	data, err := s.fs.ReadFile(args[0])
	if err != nil {
		return err
	}
	if len(args) == 1 {
		_, err = s.out.Write(data)
		return errors.Wrap(err, errors.CodeGeneric, "failed to write output")
	}
	if err := os.WriteFile(args[1], data, 0o644); err != nil {
		return errors.WithContext(errors.Wrap(err, errors.CodeGeneric, "failed to write destination file"), "path", args[1])
	}
	return nil
}

func (s *session) rm(args []string) error {
	return s.fs.Delete(args[0])
}

func (s *session) stat(args []string) error {
	size, err := s.fs.FileSize(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s\t%d\t%s\n", args[0], size, humanize.IBytes(uint64(size)))
	return nil
}

// printStats writes every counter sample gathered from reg.
func printStats(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to gather storage counters")
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %s", mf.GetName(), strings.Join(labels, ","), humanize.Comma(int64(m.GetCounter().GetValue()))))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	return nil
}
