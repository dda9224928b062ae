package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// settlingDelay batches rapid-fire file events into one rebuild.
const settlingDelay = 300 * time.Millisecond

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Rebuild whenever the source directory changes",
		Long: `Watch the configured source directory and re-run the build whenever a
file changes. Events are debounced so bursts of writes trigger one build.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch()
		},
	}
}

func runWatch() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env, err := setupPipeline()
	if err != nil {
		return err
	}
	defer env.pipe.Dispose(ctx)

	srcDir := filepath.Join(projectRoot, env.cfg.SourceDir)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// fsnotify does not recurse; register every subdirectory.
	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", srcDir, err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	printInfo(fmt.Sprintf("Watching %s for changes...", srcDir))

	// Initial build before settling into the event loop.
	if err := runBuild(ctx, env); err != nil {
		printError(fmt.Sprintf("Initial build failed: %v", err))
	}

	var timer *time.Timer
	rebuild := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New directories need registering for further events.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					watcher.Add(event.Name)
				}
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(settlingDelay, func() {
				select {
				case rebuild <- struct{}{}:
				default:
				}
			})

		case <-rebuild:
			if err := runBuild(ctx, env); err != nil {
				printError(fmt.Sprintf("Build failed: %v", err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			printError(fmt.Sprintf("Watcher error: %v", err))

		case <-sigCh:
			printInfo("Shutting down...")
			return nil
		}
	}
}
