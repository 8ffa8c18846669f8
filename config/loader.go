package config

import (
	"context"
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/dustin/go-humanize"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"

	"github.com/jmgilman/go/flashfs/errors"
)

//go:embed schema.cue
var schemaSource string

// Loader reads configuration documents from a filesystem.
type Loader struct {
	fs     billy.Filesystem
	cueCtx *cue.Context
	schema cue.Value
}

// NewLoader creates a loader reading from bfs. The schema is compiled once
// per loader.
func NewLoader(bfs billy.Filesystem) *Loader {
	ctx := cuecontext.New()
	return &Loader{
		fs:     bfs,
		cueCtx: ctx,
		schema: ctx.CompileString(schemaSource, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config")),
	}
}

// LoadFile reads and parses the document at path.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Spec, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "context cancelled")
	}

	data, err := util.ReadFile(l.fs, path)
	if err != nil {
		return nil, errors.WithContext(
			errors.Wrap(err, errors.CodeInvalidConfig, "failed to read configuration file"),
			"path", path,
		)
	}
	return l.Parse(ctx, path, data)
}

// Parse validates data against the schema and decodes it. The extension of
// name selects the format: .yaml and .yml are YAML, anything else is CUE
// (which includes JSON).
func (l *Loader) Parse(ctx context.Context, name string, data []byte) (*Spec, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "context cancelled")
	}
	if err := l.schema.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "configuration schema is invalid")
	}

	doc, err := l.compile(name, data)
	if err != nil {
		return nil, err
	}

	unified := l.schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true), cue.Final(), cue.All()); err != nil {
		return nil, invalid(err, "configuration validation failed", name)
	}

	var spec Spec
	if err := unified.Decode(&spec); err != nil {
		return nil, invalid(err, "failed to decode configuration", name)
	}
	if spec.Size, err = sizeAt(unified, "size"); err != nil {
		return nil, errors.WithContext(err, "file", name)
	}
	if spec.Device.Capacity, err = sizeAt(unified, "device.capacity"); err != nil {
		return nil, errors.WithContext(err, "file", name)
	}
	return &spec, nil
}

func (l *Loader) compile(name string, data []byte) (cue.Value, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var doc map[string]interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return cue.Value{}, errors.WithContext(
				errors.Wrap(err, errors.CodeInvalidConfig, "failed to parse YAML"),
				"file", name,
			)
		}
		v := l.cueCtx.Encode(doc)
		if err := v.Err(); err != nil {
			return cue.Value{}, invalid(err, "failed to encode YAML document", name)
		}
		return v, nil
	default:
		v := l.cueCtx.CompileBytes(data, cue.Filename(name))
		if err := v.Err(); err != nil {
			return cue.Value{}, invalid(err, "failed to compile configuration", name)
		}
		return v, nil
	}
}

// sizeAt resolves a byte count that is either an integer or a human
// readable string. Missing fields resolve to 0.
func sizeAt(v cue.Value, path string) (int64, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return 0, nil
	}
	if d, ok := f.Default(); ok {
		f = d
	}

	switch f.IncompleteKind() {
	case cue.IntKind:
		n, err := f.Int64()
		if err != nil {
			return 0, errors.Wrapf(err, errors.CodeInvalidConfig, "invalid %s", path)
		}
		return n, nil
	case cue.StringKind:
		s, err := f.String()
		if err != nil {
			return 0, errors.Wrapf(err, errors.CodeInvalidConfig, "invalid %s", path)
		}
		n, err := humanize.ParseBytes(s)
		if err != nil {
			return 0, errors.WithContext(
				errors.Wrapf(err, errors.CodeInvalidConfig, "invalid %s %q", path, s),
				"field", path,
			)
		}
		return int64(n), nil
	default:
		return 0, errors.Newf(errors.CodeInvalidConfig, "%s must be an integer or a size string", path)
	}
}

// invalid wraps a CUE error, keeping each issue with its field path.
func invalid(err error, message, file string) error {
	var issues []string
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		issue := fmt.Sprintf(format, args...)
		if path := e.Path(); len(path) > 0 {
			issue = strings.Join(path, ".") + ": " + issue
		}
		issues = append(issues, issue)
	}
	return errors.WithContextMap(
		errors.Wrap(err, errors.CodeInvalidConfig, message),
		map[string]interface{}{"file": file, "issues": issues},
	)
}
