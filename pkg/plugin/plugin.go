// Package plugin defines the capability model for registered plugins.
//
// A plugin is an opaque value exposing zero or more of four capabilities:
// per-file processing, whole-list processing, destination cleaning, and
// disposal. The capability set is resolved exactly once, at registration
// time, into a Registered wrapper; it is never re-checked on invocation.
package plugin

import (
	"context"
	"fmt"

	"github.com/transmute/transmute/pkg/buildcontext"
	"github.com/transmute/transmute/pkg/types"
	"github.com/transmute/transmute/pkg/utils"
)

// FileProcessor transforms one file at a time. FileProcessor plugins are
// eligible for distribution across the worker pool.
type FileProcessor interface {
	ProcessFile(ctx context.Context, bc buildcontext.Context, f *types.File) error
}

// ListProcessor transforms the complete ordered file list at once. A
// ListProcessor is always scheduled as a synchronization barrier and runs
// on the orchestrating side. It may reorder, filter, add, or remove files;
// the returned list becomes the input to the next phase.
type ListProcessor interface {
	ProcessFiles(ctx context.Context, bc buildcontext.Context, files []*types.File) ([]*types.File, error)
}

// Cleaner prepares the build destination before a run.
type Cleaner interface {
	Clean(ctx context.Context, bc buildcontext.Context) error
}

// Disposer releases plugin-held resources at pipeline teardown.
type Disposer interface {
	Dispose(ctx context.Context) error
}

// Named lets a plugin report a display name.
type Named interface {
	PluginName() string
}

// Filtered lets a per-file plugin restrict which paths it processes.
type Filtered interface {
	IncludePatterns() []string
	ExcludePatterns() []string
}

// Parallel lets a plugin cap how many files may be processed concurrently
// while it participates in a batch.
type Parallel interface {
	Parallelism() int
}

// Capability is a bit set describing what a registered plugin exposes.
type Capability uint8

const (
	CapFile Capability = 1 << iota
	CapList
	CapClean
	CapDispose
)

// Has reports whether all bits in want are present
func (c Capability) Has(want Capability) bool { return c&want == want }

// Registered wraps a plugin value with its capability set resolved at
// registration time.
type Registered struct {
	name        string
	caps        Capability
	file        FileProcessor
	list        ListProcessor
	clean       Cleaner
	dispose     Disposer
	filter      *utils.Filter
	parallelism int
}

// Name returns the plugin's display name
func (r *Registered) Name() string { return r.name }

// Capabilities returns the resolved capability set
func (r *Registered) Capabilities() Capability { return r.caps }

// Admits reports whether the plugin's include/exclude filter passes path
func (r *Registered) Admits(path string) bool { return r.filter.Admits(path) }

// Parallelism returns the configured concurrency cap; 0 means unbounded
func (r *Registered) Parallelism() int { return r.parallelism }

// ProcessFile invokes the per-file capability
func (r *Registered) ProcessFile(ctx context.Context, bc buildcontext.Context, f *types.File) error {
	return r.file.ProcessFile(ctx, bc, f)
}

// ProcessFiles invokes the whole-list capability
func (r *Registered) ProcessFiles(ctx context.Context, bc buildcontext.Context, files []*types.File) ([]*types.File, error) {
	return r.list.ProcessFiles(ctx, bc, files)
}

// Clean invokes the cleaner capability
func (r *Registered) Clean(ctx context.Context, bc buildcontext.Context) error {
	return r.clean.Clean(ctx, bc)
}

// Dispose invokes the disposer capability
func (r *Registered) Dispose(ctx context.Context) error {
	return r.dispose.Dispose(ctx)
}

// Register inspects a plugin value and resolves its capability set.
//
// Accepted forms: any value implementing one or more capability interfaces,
// a Funcs struct (or pointer to one), or a map[string]any with
// function-typed fields (see FromMap). A value exposing no recognizable
// capability is rejected with an error identifying it.
func Register(v any) (*Registered, error) {
	switch p := v.(type) {
	case nil:
		return nil, fmt.Errorf("invalid plugin: nil value")
	case Funcs:
		return registerFuncs(&p)
	case *Funcs:
		return registerFuncs(p)
	case map[string]any:
		f, err := FromMap(p)
		if err != nil {
			return nil, err
		}
		return registerFuncs(f)
	}

	r := &Registered{name: fmt.Sprintf("%T", v)}

	if n, ok := v.(Named); ok {
		r.name = n.PluginName()
	}
	if fp, ok := v.(FileProcessor); ok {
		r.file = fp
		r.caps |= CapFile
	}
	if lp, ok := v.(ListProcessor); ok {
		r.list = lp
		r.caps |= CapList
	}
	if c, ok := v.(Cleaner); ok {
		r.clean = c
		r.caps |= CapClean
	}
	if d, ok := v.(Disposer); ok {
		r.dispose = d
		r.caps |= CapDispose
	}

	if r.caps == 0 {
		return nil, fmt.Errorf("invalid plugin %v (%T): exposes no recognizable capability", v, v)
	}

	if f, ok := v.(Filtered); ok {
		filter, err := utils.NewFilter(f.IncludePatterns(), f.ExcludePatterns())
		if err != nil {
			return nil, fmt.Errorf("plugin %s: invalid filter: %w", r.name, err)
		}
		r.filter = filter
	}
	if p, ok := v.(Parallel); ok {
		r.parallelism = p.Parallelism()
	}

	return r, nil
}

// registerFuncs wraps the non-nil function fields of a Funcs value.
func registerFuncs(f *Funcs) (*Registered, error) {
	r := &Registered{name: f.Name, parallelism: f.Parallelism}
	if r.name == "" {
		r.name = "anonymous"
	}

	if f.ProcessFile != nil {
		r.file = fileFunc(f.ProcessFile)
		r.caps |= CapFile
	}
	if f.ProcessFiles != nil {
		r.list = listFunc(f.ProcessFiles)
		r.caps |= CapList
	}
	if f.Clean != nil {
		r.clean = cleanFunc(f.Clean)
		r.caps |= CapClean
	}
	if f.Dispose != nil {
		r.dispose = disposeFunc(f.Dispose)
		r.caps |= CapDispose
	}

	if r.caps == 0 {
		return nil, fmt.Errorf("invalid plugin %q: all capability functions are nil", r.name)
	}

	if len(f.Include) > 0 || len(f.Exclude) > 0 {
		filter, err := utils.NewFilter(f.Include, f.Exclude)
		if err != nil {
			return nil, fmt.Errorf("plugin %s: invalid filter: %w", r.name, err)
		}
		r.filter = filter
	}

	return r, nil
}

// Funcs assembles a plugin from optional function fields. At least one
// capability function must be non-nil.
type Funcs struct {
	Name         string
	ProcessFile  func(ctx context.Context, bc buildcontext.Context, f *types.File) error
	ProcessFiles func(ctx context.Context, bc buildcontext.Context, files []*types.File) ([]*types.File, error)
	Clean        func(ctx context.Context, bc buildcontext.Context) error
	Dispose      func(ctx context.Context) error
	Include      []string
	Exclude      []string
	Parallelism  int
}

type fileFunc func(ctx context.Context, bc buildcontext.Context, f *types.File) error

func (fn fileFunc) ProcessFile(ctx context.Context, bc buildcontext.Context, f *types.File) error {
	return fn(ctx, bc, f)
}

type listFunc func(ctx context.Context, bc buildcontext.Context, files []*types.File) ([]*types.File, error)

func (fn listFunc) ProcessFiles(ctx context.Context, bc buildcontext.Context, files []*types.File) ([]*types.File, error) {
	return fn(ctx, bc, files)
}

type cleanFunc func(ctx context.Context, bc buildcontext.Context) error

func (fn cleanFunc) Clean(ctx context.Context, bc buildcontext.Context) error { return fn(ctx, bc) }

type disposeFunc func(ctx context.Context) error

func (fn disposeFunc) Dispose(ctx context.Context) error { return fn(ctx) }

// FromMap builds a Funcs value from a loosely-typed map, the shape produced
// by script-driven or config-driven plugin loaders. Every recognized field
// must carry the expected type; a field with the wrong value type is an
// error naming the field and the offending value.
func FromMap(m map[string]any) (*Funcs, error) {
	f := &Funcs{}
	for key, value := range m {
		switch key {
		case "name":
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("invalid plugin: field %q has value %v (%T), want string", key, value, value)
			}
			f.Name = s
		case "processFile":
			fn, ok := value.(func(ctx context.Context, bc buildcontext.Context, file *types.File) error)
			if !ok {
				return nil, fmt.Errorf("invalid plugin: field %q has value %v (%T), want per-file function", key, value, value)
			}
			f.ProcessFile = fn
		case "processFiles":
			fn, ok := value.(func(ctx context.Context, bc buildcontext.Context, files []*types.File) ([]*types.File, error))
			if !ok {
				return nil, fmt.Errorf("invalid plugin: field %q has value %v (%T), want whole-list function", key, value, value)
			}
			f.ProcessFiles = fn
		case "clean":
			fn, ok := value.(func(ctx context.Context, bc buildcontext.Context) error)
			if !ok {
				return nil, fmt.Errorf("invalid plugin: field %q has value %v (%T), want clean function", key, value, value)
			}
			f.Clean = fn
		case "dispose":
			fn, ok := value.(func(ctx context.Context) error)
			if !ok {
				return nil, fmt.Errorf("invalid plugin: field %q has value %v (%T), want dispose function", key, value, value)
			}
			f.Dispose = fn
		case "include":
			patterns, ok := toStringSlice(value)
			if !ok {
				return nil, fmt.Errorf("invalid plugin: field %q has value %v (%T), want string list", key, value, value)
			}
			f.Include = patterns
		case "exclude":
			patterns, ok := toStringSlice(value)
			if !ok {
				return nil, fmt.Errorf("invalid plugin: field %q has value %v (%T), want string list", key, value, value)
			}
			f.Exclude = patterns
		case "parallelism":
			n, ok := value.(int)
			if !ok {
				return nil, fmt.Errorf("invalid plugin: field %q has value %v (%T), want int", key, value, value)
			}
			f.Parallelism = n
		default:
			return nil, fmt.Errorf("invalid plugin: unknown field %q", key)
		}
	}
	return f, nil
}

func toStringSlice(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return s, true
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	}
	return nil, false
}
