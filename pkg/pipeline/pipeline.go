// Package pipeline owns the registered plugin list across the engine's
// lifetime and exposes the clean/build/dispose operations.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/transmute/transmute/internal/engine"
	"github.com/transmute/transmute/pkg/buildcontext"
	"github.com/transmute/transmute/pkg/interfaces"
	"github.com/transmute/transmute/pkg/logger"
	"github.com/transmute/transmute/pkg/plugin"
	"github.com/transmute/transmute/pkg/source"
	"github.com/transmute/transmute/pkg/types"
)

// ErrDisposed is returned by every pipeline operation invoked after
// Dispose has completed.
var ErrDisposed = errors.New("pipeline is no longer usable")

// Options configures a pipeline
type Options struct {
	// Name identifies the pipeline in notifications and persisted state.
	Name string
	// Workers bounds the per-file worker pool. Zero picks a default.
	Workers int
	// Context is the shared build environment handed to every plugin
	// invocation. Nil gets an empty store.
	Context buildcontext.Context
}

// Pipeline applies registered plugins, in registration order, to a stream
// of files. It survives across builds: a failed Build leaves it usable.
type Pipeline struct {
	name    string
	workers int
	bc      buildcontext.Context
	logger  logger.Logger
	deps    interfaces.PipelineDependencies

	mu       sync.Mutex
	plugins  []*plugin.Registered
	disposed bool
}

// New creates a pipeline
func New(opts Options, log logger.Logger, deps interfaces.PipelineDependencies) *Pipeline {
	bc := opts.Context
	if bc == nil {
		bc = buildcontext.NewStore(nil)
	}
	name := opts.Name
	if name == "" {
		name = "transmute"
	}

	return &Pipeline{
		name:    name,
		workers: opts.Workers,
		bc:      bc,
		logger:  log,
		deps:    deps,
	}
}

// Add registers a plugin. The value's capability set is resolved here,
// once; a value without any recognizable capability is rejected
// synchronously rather than at build time.
func (p *Pipeline) Add(v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return ErrDisposed
	}

	reg, err := plugin.Register(v)
	if err != nil {
		return err
	}

	p.plugins = append(p.plugins, reg)
	p.logger.Debug("Registered plugin",
		logger.WithField("plugin", reg.Name()),
		logger.WithField("capabilities", fmt.Sprintf("%04b", reg.Capabilities())))
	return nil
}

// AddRegistered appends an already-resolved plugin, typically produced by
// a registry lookup.
func (p *Pipeline) AddRegistered(reg *plugin.Registered) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return ErrDisposed
	}

	p.plugins = append(p.plugins, reg)
	return nil
}

// Clean runs all cleaner-capable plugins concurrently against the shared
// context. Every cleaner runs to completion; the first error is surfaced.
func (p *Pipeline) Clean(ctx context.Context) error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return ErrDisposed
	}
	cleaners := p.withCapability(plugin.CapClean)
	p.mu.Unlock()

	if len(cleaners) == 0 {
		return nil
	}

	g, _ := engine.NewSafeGroup(ctx, p.logger)
	for _, c := range cleaners {
		c := c
		g.Go(func() error {
			if err := c.Clean(ctx, p.bc); err != nil {
				return fmt.Errorf("%s: %w", c.Name(), err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Build runs one build over the files produced by src and returns its
// summary. Errors do not corrupt pipeline state; a subsequent Build may
// succeed.
func (p *Pipeline) Build(ctx context.Context, src source.Source) (*types.BuildSummary, error) {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return nil, ErrDisposed
	}
	plugins := make([]*plugin.Registered, len(p.plugins))
	copy(plugins, p.plugins)
	p.mu.Unlock()

	if p.deps.Notifier != nil {
		p.deps.Notifier.NotifyBuildStart(p.name)
	}

	start := time.Now()
	orch := engine.NewOrchestrator(plugins, p.bc, p.workers, p.logger)
	summary, err := orch.Run(ctx, src)
	duration := time.Since(start)

	if p.deps.Notifier != nil {
		if err != nil {
			p.deps.Notifier.NotifyBuildFailure(p.name, err)
		} else {
			p.deps.Notifier.NotifyBuildSuccess(p.name, duration)
		}
	}

	if p.deps.SummaryStore != nil && summary != nil {
		if serr := p.deps.SummaryStore.Save(p.name, summary); serr != nil {
			p.logger.Warn("Failed to persist build summary", logger.WithField("error", serr))
		}
	}

	return summary, err
}

// Dispose clears the plugin list and runs all disposer-capable plugins
// concurrently. It is idempotent: a second call is a no-op, not an error.
// Outstanding per-file tasks from an in-flight build are allowed to drain;
// Dispose only stops the pipeline from accepting new work.
func (p *Pipeline) Dispose(ctx context.Context) error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return nil
	}
	p.disposed = true
	disposers := p.withCapability(plugin.CapDispose)
	p.plugins = nil
	p.mu.Unlock()

	if len(disposers) == 0 {
		return nil
	}

	g, _ := engine.NewSafeGroup(ctx, p.logger)
	for _, d := range disposers {
		d := d
		g.Go(func() error {
			if err := d.Dispose(ctx); err != nil {
				return fmt.Errorf("%s: %w", d.Name(), err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Watch is reserved for incremental rebuild support and currently returns
// immediately. The CLI layers a file-watching loop above Build instead.
func (p *Pipeline) Watch(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return ErrDisposed
	}
	return nil
}

// Disposed reports whether Dispose has completed
func (p *Pipeline) Disposed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disposed
}

// PluginCount returns the number of registered plugins
func (p *Pipeline) PluginCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.plugins)
}

// withCapability filters the plugin list; callers hold p.mu.
func (p *Pipeline) withCapability(c plugin.Capability) []*plugin.Registered {
	var out []*plugin.Registered
	for _, reg := range p.plugins {
		if reg.Capabilities().Has(c) {
			out = append(out, reg)
		}
	}
	return out
}
