package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/transmute/transmute/internal/state"
	"github.com/transmute/transmute/pkg/buildcontext"
	"github.com/transmute/transmute/pkg/config"
	"github.com/transmute/transmute/pkg/interfaces"
	"github.com/transmute/transmute/pkg/logger"
	"github.com/transmute/transmute/pkg/notifier"
	"github.com/transmute/transmute/pkg/pipeline"
	"github.com/transmute/transmute/pkg/plugin"
	"github.com/transmute/transmute/pkg/source"
	"github.com/transmute/transmute/pkg/types"
)

func newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Run one build over the configured source directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setupPipeline()
			if err != nil {
				return err
			}
			defer env.pipe.Dispose(cmd.Context())

			return runBuild(cmd.Context(), env)
		},
	}
}

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Run all cleaner-capable plugins",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setupPipeline()
			if err != nil {
				return err
			}
			defer env.pipe.Dispose(cmd.Context())

			if err := env.pipe.Clean(cmd.Context()); err != nil {
				return fmt.Errorf("clean failed: %w", err)
			}
			printSuccess("Clean completed")
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [project-name]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := filepath.Base(mustAbs(projectRoot))
			if len(args) > 0 {
				name = args[0]
			}

			mgr := config.NewManager()
			cfg := mgr.GetDefaultConfig(name)
			path := getConfigPath()
			if err := mgr.WriteConfig(path, cfg); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Wrote %s", path))
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and its plugin references",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewManager().LoadConfig(getConfigPath())
			if err != nil {
				return err
			}

			registry := plugin.DefaultRegistry()
			for _, pc := range cfg.Plugins {
				if _, err := registry.Resolve(pc); err != nil {
					return err
				}
			}

			printSuccess("Configuration is valid")
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last build summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewManager().LoadConfig(getConfigPath())
			if err != nil {
				return err
			}

			log := logger.CreateLogger("", verbosity)
			store := state.NewStore(projectRoot, log)
			summary, err := store.Load(cfg.ProjectName)
			if err != nil {
				printInfo("No previous build recorded")
				return nil
			}

			printInfo(fmt.Sprintf("Run %s (%s)", summary.RunID, summary.State))
			printInfo(fmt.Sprintf("  started:  %s", summary.StartedAt.Format(time.RFC3339)))
			printInfo(fmt.Sprintf("  duration: %s", summary.Duration))
			printInfo(fmt.Sprintf("  files:    %d in, %d out", summary.InputFiles, summary.OutputFiles))
			for _, phase := range summary.Phases {
				printInfo(fmt.Sprintf("  phase %-8s %v (%s)", phase.Kind, phase.Plugins, phase.Duration))
			}
			for _, berr := range summary.Errors {
				printError("  " + berr.Error())
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("⚗ Transmute v%s\n", version)
		},
	}
}

// buildEnv bundles everything a CLI build run needs.
type buildEnv struct {
	cfg  *types.TransmuteConfig
	log  logger.Logger
	pipe *pipeline.Pipeline
}

// setupPipeline loads the configuration and assembles a pipeline with its
// plugins resolved from the default registry.
func setupPipeline() (*buildEnv, error) {
	cfg, err := config.NewManager().LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logFile := ""
	logLevel := verbosity
	if cfg.Logging != nil {
		logFile = cfg.Logging.File
		if cfg.Logging.Level != "" && verbosity == "info" {
			logLevel = string(cfg.Logging.Level)
		}
	}
	log := logger.CreateLogger(logFile, logLevel)

	deps := interfaces.PipelineDependencies{
		SummaryStore: state.NewStore(projectRoot, log),
	}
	if cfg.Notifications != nil && cfg.Notifications.Enabled != nil && *cfg.Notifications.Enabled {
		deps.Notifier = notifier.New(notifier.Config{
			Enabled:      true,
			SuccessSound: cfg.Notifications.SuccessSound,
			FailureSound: cfg.Notifications.FailureSound,
		}, log)
	}

	pipe := pipeline.New(pipeline.Options{
		Name:    cfg.ProjectName,
		Workers: cfg.Workers,
		Context: buildcontext.NewStore(cfg.Context),
	}, log, deps)

	registry := plugin.DefaultRegistry()
	for _, pc := range cfg.Plugins {
		reg, err := registry.Resolve(pc)
		if err != nil {
			return nil, err
		}
		if err := pipe.AddRegistered(reg); err != nil {
			return nil, err
		}
	}

	return &buildEnv{cfg: cfg, log: log, pipe: pipe}, nil
}

func runBuild(ctx context.Context, env *buildEnv) error {
	srcDir := filepath.Join(projectRoot, env.cfg.SourceDir)
	src, err := source.FromDir(srcDir)
	if err != nil {
		return err
	}

	summary, err := env.pipe.Build(ctx, src)
	if err != nil {
		printError(fmt.Sprintf("Build failed: %v", err))
		return err
	}

	printSuccess(fmt.Sprintf("Build %s completed: %d file(s) in %s",
		summary.RunID, summary.OutputFiles, summary.Duration))
	return nil
}

func mustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
