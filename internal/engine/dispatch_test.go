package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/transmute/transmute/pkg/buildcontext"
	"github.com/transmute/transmute/pkg/logger"
	"github.com/transmute/transmute/pkg/plugin"
	"github.com/transmute/transmute/pkg/types"
)

func testLogger() logger.Logger {
	return logger.CreateLoggerWithOutput("error", io.Discard)
}

func makeFiles(n int) []*types.File {
	files := make([]*types.File, n)
	for i := 0; i < n; i++ {
		files[i] = types.NewFile(fmt.Sprintf("src/file%02d.txt", i), []byte(fmt.Sprintf("content %d", i)))
	}
	return files
}

func TestRunBatch_PreservesInputOrderUnderVariedLatency(t *testing.T) {
	files := makeFiles(8)

	// Early files sleep longest so completion order inverts input order.
	stamp, err := plugin.Register(plugin.Funcs{
		Name: "stamp",
		ProcessFile: func(ctx context.Context, bc buildcontext.Context, f *types.File) error {
			var delay time.Duration
			for i := range files {
				if files[i].Path == f.Path {
					delay = time.Duration(len(files)-i) * 5 * time.Millisecond
				}
			}
			time.Sleep(delay)
			f.Meta["stamped"] = true
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	d := newDispatcher(3, testLogger())
	outcome := d.runBatch(context.Background(), buildcontext.NewStore(nil), files, []*plugin.Registered{stamp})

	if len(outcome.errs) != 0 {
		t.Fatalf("unexpected errors: %v", outcome.errs)
	}
	if len(outcome.files) != len(files) {
		t.Fatalf("expected %d files, got %d", len(files), len(outcome.files))
	}
	for i, f := range outcome.files {
		want := fmt.Sprintf("src/file%02d.txt", i)
		if f.Path != want {
			t.Errorf("position %d: expected %s, got %s", i, want, f.Path)
		}
		if v, ok := f.Meta["stamped"].(bool); !ok || !v {
			t.Errorf("file %s was not processed", f.Path)
		}
	}
}

func TestRunBatch_SiblingsDrainAfterError(t *testing.T) {
	files := makeFiles(6)

	var mu sync.Mutex
	processed := map[string]bool{}

	flaky, err := plugin.Register(plugin.Funcs{
		Name: "flaky",
		ProcessFile: func(ctx context.Context, bc buildcontext.Context, f *types.File) error {
			mu.Lock()
			processed[f.Path] = true
			mu.Unlock()
			if f.Path == "src/file02.txt" {
				return errors.New("boom")
			}
			f.Meta["ok"] = true
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	d := newDispatcher(2, testLogger())
	outcome := d.runBatch(context.Background(), buildcontext.NewStore(nil), files, []*plugin.Registered{flaky})

	if len(outcome.errs) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(outcome.errs), outcome.errs)
	}
	be := outcome.errs[0]
	if be.Plugin != "flaky" || be.Path != "src/file02.txt" || be.Message != "boom" {
		t.Errorf("unexpected error attribution: %+v", be)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(processed) != len(files) {
		t.Errorf("expected all %d files dispatched despite the failure, got %d", len(files), len(processed))
	}

	// The failed file keeps its canonical state; every sibling was merged.
	for i, f := range outcome.files {
		if i == 2 {
			if _, ok := f.Meta["ok"]; ok {
				t.Errorf("failed file must not be merged back")
			}
			continue
		}
		if v, ok := f.Meta["ok"].(bool); !ok || !v {
			t.Errorf("file %s missing merged result", f.Path)
		}
	}
}

func TestRunBatch_ErrorStopsRemainingPluginsForThatFile(t *testing.T) {
	files := makeFiles(1)

	first, _ := plugin.Register(plugin.Funcs{
		Name: "first",
		ProcessFile: func(ctx context.Context, bc buildcontext.Context, f *types.File) error {
			return errors.New("first failed")
		},
	})
	var secondRan bool
	second, _ := plugin.Register(plugin.Funcs{
		Name: "second",
		ProcessFile: func(ctx context.Context, bc buildcontext.Context, f *types.File) error {
			secondRan = true
			return nil
		},
	})

	d := newDispatcher(1, testLogger())
	outcome := d.runBatch(context.Background(), buildcontext.NewStore(nil), files, []*plugin.Registered{first, second})

	if len(outcome.errs) != 1 || outcome.errs[0].Plugin != "first" {
		t.Fatalf("expected single error from first plugin, got %v", outcome.errs)
	}
	if secondRan {
		t.Errorf("second plugin must not run after the file errored")
	}
}

func TestRunBatch_FilteredPluginSkipsNonMatchingFiles(t *testing.T) {
	files := []*types.File{
		types.NewFile("a.md", []byte("md")),
		types.NewFile("b.txt", []byte("txt")),
	}

	mark, err := plugin.Register(plugin.Funcs{
		Name:    "markdown",
		Include: []string{"*.md"},
		ProcessFile: func(ctx context.Context, bc buildcontext.Context, f *types.File) error {
			f.Meta["seen"] = true
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	d := newDispatcher(2, testLogger())
	outcome := d.runBatch(context.Background(), buildcontext.NewStore(nil), files, []*plugin.Registered{mark})

	if len(outcome.errs) != 0 {
		t.Fatalf("unexpected errors: %v", outcome.errs)
	}
	if _, ok := outcome.files[0].Meta["seen"]; !ok {
		t.Errorf("matching file was not processed")
	}
	if _, ok := outcome.files[1].Meta["seen"]; ok {
		t.Errorf("non-matching file must be skipped")
	}
}

func TestRunBatch_WorkerCanQueryOrchestratorContext(t *testing.T) {
	bc := buildcontext.NewStore(map[string]any{"site_name": "transmute-docs"})
	files := makeFiles(4)

	read, err := plugin.Register(plugin.Funcs{
		Name: "read-config",
		ProcessFile: func(ctx context.Context, rc buildcontext.Context, f *types.File) error {
			v, ok := rc.Get("site_name")
			if !ok {
				return errors.New("context key missing")
			}
			f.Meta["site"] = v
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	d := newDispatcher(2, testLogger())
	outcome := d.runBatch(context.Background(), bc, files, []*plugin.Registered{read})

	if len(outcome.errs) != 0 {
		t.Fatalf("unexpected errors: %v", outcome.errs)
	}
	for _, f := range outcome.files {
		if f.Meta["site"] != "transmute-docs" {
			t.Errorf("file %s: expected context value in metadata, got %v", f.Path, f.Meta["site"])
		}
	}
}

func TestRunBatch_ParallelismHintCapsPool(t *testing.T) {
	files := makeFiles(6)

	var mu sync.Mutex
	active, peak := 0, 0

	serial, err := plugin.Register(plugin.Funcs{
		Name:        "serial",
		Parallelism: 1,
		ProcessFile: func(ctx context.Context, bc buildcontext.Context, f *types.File) error {
			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	d := newDispatcher(4, testLogger())
	outcome := d.runBatch(context.Background(), buildcontext.NewStore(nil), files, []*plugin.Registered{serial})

	if len(outcome.errs) != 0 {
		t.Fatalf("unexpected errors: %v", outcome.errs)
	}
	if peak != 1 {
		t.Errorf("expected at most 1 concurrent execution, observed %d", peak)
	}
}

func TestRunBatch_RecordsPluginTimings(t *testing.T) {
	files := makeFiles(2)

	slow, _ := plugin.Register(plugin.Funcs{
		Name: "slow",
		ProcessFile: func(ctx context.Context, bc buildcontext.Context, f *types.File) error {
			time.Sleep(time.Millisecond)
			return nil
		},
	})

	d := newDispatcher(2, testLogger())
	outcome := d.runBatch(context.Background(), buildcontext.NewStore(nil), files, []*plugin.Registered{slow})

	if outcome.pluginTimings["slow"] <= 0 {
		t.Errorf("expected accumulated timing for plugin, got %v", outcome.pluginTimings["slow"])
	}
}
