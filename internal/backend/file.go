package backend

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/passflow/internal/log"
)

// File is one pipeline file. A file without a backend declares global flows
// and passes.
type File struct {
	Source string `yaml:"-"`

	Backend     string     `yaml:"backend,omitempty"`
	Parent      string     `yaml:"parent,omitempty"`
	Description string     `yaml:"description,omitempty"`
	DefaultFlow string     `yaml:"default_flow,omitempty"`
	WriterFlow  string     `yaml:"writer_flow,omitempty"`
	Passes      []PassSpec `yaml:"passes,omitempty"`
	Flows       []FlowSpec `yaml:"flows,omitempty"`
}

// PassSpec declares a catalog pass built from a kind.
type PassSpec struct {
	Name string         `yaml:"name"`
	Kind string         `yaml:"kind"`
	With map[string]any `yaml:"with,omitempty"`
}

// FlowSpec declares a flow. Either Requires or DeriveFrom may be set, not
// both; Insert only applies to derived flows.
type FlowSpec struct {
	Name       string       `yaml:"name"`
	Passes     []string     `yaml:"passes,omitempty"`
	PassesFrom string       `yaml:"passes_from,omitempty"`
	Requires   []string     `yaml:"requires,omitempty"`
	DeriveFrom string       `yaml:"derive_from,omitempty"`
	Insert     []InsertSpec `yaml:"insert,omitempty"`
	// Aggregate drops the passes a derived flow would inherit.
	Aggregate bool `yaml:"aggregate,omitempty"`
}

// InsertSpec splices Flow before or after an anchor of a derived flow's
// requirement list.
type InsertSpec struct {
	Before string `yaml:"before,omitempty"`
	After  string `yaml:"after,omitempty"`
	Flow   string `yaml:"flow"`
}

// FileError locates a problem in a pipeline file.
type FileError struct {
	Source string
	Field  string
	Err    error
}

func (e *FileError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Field, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// IsGlobal reports whether the file declares global flows.
func (f *File) IsGlobal() bool {
	return strings.TrimSpace(f.Backend) == ""
}

// Validate checks the file's structure. It does not check references to
// other files; bring-up does that.
func (f *File) Validate() error {
	fail := func(field, format string, args ...any) error {
		return &FileError{Source: f.Source, Field: field, Err: fmt.Errorf(format, args...)}
	}

	if strings.Contains(f.Backend, ":") {
		return fail("backend", "%w: %q", ErrInvalidBackend, f.Backend)
	}
	if f.IsGlobal() {
		if f.Parent != "" || f.DefaultFlow != "" || f.WriterFlow != "" {
			return fail("", "parent, default_flow and writer_flow need a backend")
		}
	}

	seenPass := make(map[string]bool, len(f.Passes))
	for i, p := range f.Passes {
		field := fmt.Sprintf("passes[%d]", i)
		if strings.TrimSpace(p.Name) == "" {
			return fail(field, "name is required")
		}
		if strings.TrimSpace(p.Kind) == "" {
			return fail(field, "kind is required for %s", p.Name)
		}
		if seenPass[p.Name] {
			return fail(field, "pass %s declared twice", p.Name)
		}
		seenPass[p.Name] = true
	}

	seenFlow := make(map[string]bool, len(f.Flows))
	for i, fl := range f.Flows {
		field := fmt.Sprintf("flows[%d]", i)
		if strings.TrimSpace(fl.Name) == "" {
			return fail(field, "name is required")
		}
		if seenFlow[fl.Name] {
			return fail(field, "flow %s declared twice", fl.Name)
		}
		seenFlow[fl.Name] = true

		if fl.PassesFrom != "" && len(fl.Passes) > 0 {
			return fail(field, "flow %s: passes and passes_from are exclusive", fl.Name)
		}
		if fl.DeriveFrom == "" {
			if len(fl.Insert) > 0 {
				return fail(field, "flow %s: insert needs derive_from", fl.Name)
			}
			if fl.Aggregate {
				return fail(field, "flow %s: aggregate needs derive_from", fl.Name)
			}
			continue
		}
		if len(fl.Requires) > 0 {
			return fail(field, "flow %s: requires and derive_from are exclusive", fl.Name)
		}
		if fl.Aggregate && (len(fl.Passes) > 0 || fl.PassesFrom != "") {
			return fail(field, "flow %s: aggregate flows take no passes", fl.Name)
		}
		for j, ins := range fl.Insert {
			insField := fmt.Sprintf("%s.insert[%d]", field, j)
			if (ins.Before == "") == (ins.After == "") {
				return fail(insField, "exactly one of before and after is required")
			}
			if ins.Flow == "" {
				return fail(insField, "flow is required")
			}
		}
	}
	return nil
}

// Parse decodes and validates one pipeline file. Unknown keys are errors.
func Parse(r io.Reader, source string) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &FileError{Source: source, Err: errors.New("empty pipeline file")}
		}
		return nil, &FileError{Source: source, Err: err}
	}
	f.Source = source
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile parses the pipeline file at p.
func LoadFile(p string) (*File, error) {
	fh, err := os.Open(p) //nolint:gosec // G304: configured pipelines path
	if err != nil {
		return nil, fmt.Errorf("open pipeline file: %w", err)
	}
	defer func() { _ = fh.Close() }()
	return Parse(fh, p)
}

// LoadFS parses every *.yaml and *.yml file at the root of fsys, in name
// order.
func LoadFS(fsys fs.FS) ([]*File, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read pipelines: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		switch strings.ToLower(path.Ext(e.Name())) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	files := make([]*File, 0, len(names))
	for _, name := range names {
		fh, err := fsys.Open(name)
		if err != nil {
			return nil, fmt.Errorf("open pipeline file: %w", err)
		}
		f, err := Parse(fh, name)
		_ = fh.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	log.Debug(log.CatBackend, "loaded pipeline files", "count", len(files))
	return files, nil
}

// LoadDir is LoadFS over a directory on disk.
func LoadDir(dir string) ([]*File, error) {
	files, err := LoadFS(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	for _, f := range files {
		f.Source = filepath.Join(dir, f.Source)
	}
	return files, nil
}
