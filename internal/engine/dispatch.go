package engine

import (
	"context"
	"sync"
	"time"

	"github.com/transmute/transmute/pkg/buildcontext"
	"github.com/transmute/transmute/pkg/logger"
	"github.com/transmute/transmute/pkg/plugin"
	"github.com/transmute/transmute/pkg/transfer"
	"github.com/transmute/transmute/pkg/types"
)

// dispatcher fans per-file work out across a fixed pool of workers. Each
// file is serialized, processed by all of a phase's plugins in registration
// order inside exactly one worker, and merged back on the orchestrating
// side. Results are re-assembled in input order no matter which files
// finish first.
type dispatcher struct {
	workers int
	logger  logger.Logger
}

type batchTask struct {
	index    int
	snapshot *types.SerializedFile
}

type batchResult struct {
	index    int
	snapshot *types.SerializedFile
	errs     []types.BuildError
}

// batchOutcome carries everything a finished batch produced.
type batchOutcome struct {
	files         []*types.File
	errs          []types.BuildError
	pluginTimings map[string]time.Duration
}

// newDispatcher creates a dispatcher with the given pool size
func newDispatcher(workers int, log logger.Logger) *dispatcher {
	if workers <= 0 {
		workers = 2
	}
	return &dispatcher{workers: workers, logger: log}
}

// bound computes the effective concurrency for a batch: the pool size,
// capped by the smallest per-plugin parallelism hint.
func (d *dispatcher) bound(plugins []*plugin.Registered) int {
	bound := d.workers
	for _, p := range plugins {
		if n := p.Parallelism(); n > 0 && n < bound {
			bound = n
		}
	}
	if bound < 1 {
		bound = 1
	}
	return bound
}

// runBatch executes one per-file phase over the given files. Every
// dispatched task is allowed to settle even when a sibling fails; the
// collected errors decide afterwards whether the batch counts as failed.
func (d *dispatcher) runBatch(ctx context.Context, bc buildcontext.Context, files []*types.File, plugins []*plugin.Registered) batchOutcome {
	outcome := batchOutcome{
		files:         make([]*types.File, len(files)),
		pluginTimings: make(map[string]time.Duration),
	}
	copy(outcome.files, files)

	if len(files) == 0 || len(plugins) == 0 {
		return outcome
	}

	bound := d.bound(plugins)

	tasks := make(chan batchTask)
	results := make(chan batchResult, len(files))
	calls := make(chan transfer.ContextCall, bound)

	// Answer worker callback requests until every worker has exited.
	var serveDone sync.WaitGroup
	serveDone.Add(1)
	go func() {
		defer serveDone.Done()
		transfer.ServeCalls(calls, bc)
	}()

	var timingMu sync.Mutex
	var workerWG sync.WaitGroup
	for w := 0; w < bound; w++ {
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			remote := transfer.NewRemoteContext(calls)
			for task := range tasks {
				res := d.processTask(ctx, remote, task, plugins, &timingMu, outcome.pluginTimings)
				results <- res
			}
		}()
	}

	// Serialize and dispatch in input order. A file that fails to
	// serialize is reported against that file and passes through
	// unprocessed; siblings are unaffected.
	dispatched := 0
	var serializeErrs []types.BuildError
	for i, f := range files {
		snapshot, err := transfer.Serialize(f)
		if err != nil {
			serializeErrs = append(serializeErrs, types.BuildError{
				Plugin:  plugins[0].Name(),
				Path:    f.Path,
				Message: err.Error(),
			})
			continue
		}
		tasks <- batchTask{index: i, snapshot: snapshot}
		dispatched++
	}
	close(tasks)

	go func() {
		workerWG.Wait()
		close(calls)
		close(results)
	}()

	// Collect settled results and merge in input order. Files that
	// errored keep their canonical state untouched.
	merged := make(map[int]*types.SerializedFile, dispatched)
	for res := range results {
		if len(res.errs) > 0 {
			outcome.errs = append(outcome.errs, res.errs...)
			continue
		}
		merged[res.index] = res.snapshot
	}
	serveDone.Wait()

	outcome.errs = append(outcome.errs, serializeErrs...)

	for i, f := range files {
		if snapshot, ok := merged[i]; ok {
			transfer.Update(f, snapshot)
		}
		outcome.files[i] = f
	}

	return outcome
}

// processTask runs all of a phase's plugins against one worker-side clone.
func (d *dispatcher) processTask(ctx context.Context, remote buildcontext.Context, task batchTask, plugins []*plugin.Registered, timingMu *sync.Mutex, timings map[string]time.Duration) batchResult {
	res := batchResult{index: task.index}

	clone := transfer.Deserialize(task.snapshot)

	for _, p := range plugins {
		if err := ctx.Err(); err != nil {
			res.errs = append(res.errs, types.BuildError{
				Plugin:  p.Name(),
				Path:    clone.Path,
				Message: err.Error(),
			})
			return res
		}
		if !p.Admits(clone.Path) {
			continue
		}

		start := time.Now()
		err := p.ProcessFile(ctx, remote, clone)
		elapsed := time.Since(start)

		timingMu.Lock()
		timings[p.Name()] += elapsed
		timingMu.Unlock()

		if err != nil {
			d.logger.WithPlugin(p.Name()).Debug("Per-file plugin failed",
				logger.WithField("path", clone.Path),
				logger.WithField("error", err))
			res.errs = append(res.errs, types.BuildError{
				Plugin:  p.Name(),
				Path:    clone.Path,
				Message: err.Error(),
			})
			return res
		}
	}

	res.snapshot = transfer.Snapshot(clone)
	return res
}
