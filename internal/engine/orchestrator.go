package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/transmute/transmute/pkg/buildcontext"
	"github.com/transmute/transmute/pkg/logger"
	"github.com/transmute/transmute/pkg/plugin"
	"github.com/transmute/transmute/pkg/source"
	"github.com/transmute/transmute/pkg/types"
)

// Orchestrator drives one full build run: it computes the phase schedule
// from the plugin list, executes the phases in order against the file
// stream, and assembles the build summary.
//
// A barrier phase never begins until every file from the preceding phase
// has completed and been merged back, and nothing after a barrier begins
// until the barrier itself completes. Whole-list plugins always run on the
// orchestrating side; only per-file work is distributed.
type Orchestrator struct {
	plugins  []*plugin.Registered
	bc       buildcontext.Context
	logger   logger.Logger
	dispatch *dispatcher

	mu    sync.RWMutex
	state types.BuildState
}

// NewOrchestrator creates an orchestrator for a single build run
func NewOrchestrator(plugins []*plugin.Registered, bc buildcontext.Context, workers int, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		plugins:  plugins,
		bc:       bc,
		logger:   log,
		dispatch: newDispatcher(workers, log),
		state:    types.BuildStatePending,
	}
}

// State returns the orchestrator's current build state
func (o *Orchestrator) State() types.BuildState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *Orchestrator) setState(s types.BuildState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Run executes one build over the files produced by src.
//
// Per-file errors are collected without aborting siblings in the same
// phase; once a phase with errors settles, the run transitions to Failed
// and the collected errors propagate. The returned summary is produced in
// both outcomes.
func (o *Orchestrator) Run(ctx context.Context, src source.Source) (*types.BuildSummary, error) {
	runID := buildcontext.GenerateRunID()
	startedAt := time.Now()

	summary := &types.BuildSummary{
		RunID:     runID,
		StartedAt: startedAt,
	}

	fail := func(err error) (*types.BuildSummary, error) {
		o.setState(types.BuildStateFailed)
		summary.State = types.BuildStateFailed
		summary.Duration = time.Since(startedAt)
		return summary, err
	}

	initial, subsequent := CreateBuildPhases(o.plugins)

	o.logger.Debug("Computed build phases",
		logger.WithField("run", runID),
		logger.WithField("initial_plugins", len(initial.Plugins)),
		logger.WithField("subsequent_phases", len(subsequent)))

	files, err := source.Collect(src)
	if err != nil {
		return fail(fmt.Errorf("file source failed: %w", err))
	}
	summary.InputFiles = len(files)

	// Initial phase: every file passes through the leading per-file
	// plugins as it enters the pipeline.
	o.setState(types.BuildStateInitialPhase)
	files, timing, errs := o.runPhase(ctx, initial, files)
	summary.Phases = append(summary.Phases, timing)
	summary.Errors = append(summary.Errors, errs...)

	for i, phase := range subsequent {
		o.setState(types.BuildStatePhase)
		o.logger.Debug("Running phase",
			logger.WithField("run", runID),
			logger.WithField("phase", i+1),
			logger.WithField("kind", phase.Kind))

		var phaseErrs []types.BuildError
		files, timing, phaseErrs = o.runPhase(ctx, phase, files)
		summary.Phases = append(summary.Phases, timing)
		summary.Errors = append(summary.Errors, phaseErrs...)

		// A failed barrier leaves no meaningful file list for later
		// phases; stop here. Batch errors drain their phase first and
		// surface after the run completes.
		if phase.Kind == types.PhaseBarrier && len(phaseErrs) > 0 {
			return fail(phaseErrs[0])
		}
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
	}

	summary.OutputFiles = len(files)
	summary.Duration = time.Since(startedAt)

	if len(summary.Errors) > 0 {
		o.setState(types.BuildStateFailed)
		summary.State = types.BuildStateFailed
		return summary, fmt.Errorf("build failed with %d error(s): %w", len(summary.Errors), summary.Errors[0])
	}

	o.setState(types.BuildStateCompleted)
	summary.State = types.BuildStateCompleted
	return summary, nil
}

// runPhase executes a single phase polymorphically: barriers run the
// whole-list plugin synchronously on this side, batch and initial phases
// fan out through the worker pool.
func (o *Orchestrator) runPhase(ctx context.Context, phase Phase, files []*types.File) ([]*types.File, types.PhaseTiming, []types.BuildError) {
	start := time.Now()
	timing := types.PhaseTiming{
		Kind:    phase.Kind,
		Plugins: phase.PluginNames(),
		Files:   len(files),
	}

	if len(phase.Plugins) == 0 {
		timing.Duration = time.Since(start)
		return files, timing, nil
	}

	switch phase.Kind {
	case types.PhaseBarrier:
		p := phase.Plugins[0]
		out, err := p.ProcessFiles(ctx, o.bc, files)
		timing.Duration = time.Since(start)
		if err != nil {
			return files, timing, []types.BuildError{{
				Plugin:  p.Name(),
				Message: err.Error(),
			}}
		}
		return out, timing, nil

	default:
		outcome := o.dispatch.runBatch(ctx, o.bc, files, phase.Plugins)
		timing.Duration = time.Since(start)
		timing.PluginTimings = outcome.pluginTimings
		return outcome.files, timing, outcome.errs
	}
}
