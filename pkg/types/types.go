// Package types provides core types and configurations for Transmute
package types

import (
	"fmt"
	"time"
)

// LogLevel represents logging verbosity levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// BuildState represents the current state of a build run
type BuildState string

const (
	BuildStatePending      BuildState = "pending"
	BuildStateInitialPhase BuildState = "initial-phase"
	BuildStatePhase        BuildState = "phase"
	BuildStateCompleted    BuildState = "completed"
	BuildStateFailed       BuildState = "failed"
)

// PhaseKind classifies a scheduled build phase
type PhaseKind string

const (
	// PhaseInitial is the leading run of per-file plugins applied to every
	// file as it first enters the pipeline.
	PhaseInitial PhaseKind = "initial"
	// PhaseBatch is a run of consecutive per-file plugins fanned out across
	// the worker pool.
	PhaseBatch PhaseKind = "batch"
	// PhaseBarrier is a single whole-list plugin executed synchronously on
	// the orchestrating side.
	PhaseBarrier PhaseKind = "barrier"
)

// File is the canonical in-memory representation of one file. Exactly one
// instance exists per path per build, owned by the orchestrating side.
// Workers never see this instance directly; they operate on reconstructed
// clones whose results are merged back explicitly.
type File struct {
	Path       string
	CreatedAt  time.Time
	ModifiedAt time.Time
	Meta       map[string]any
	Contents   []byte
}

// NewFile creates a canonical file record with an initialized metadata map.
func NewFile(path string, contents []byte) *File {
	now := time.Now()
	return &File{
		Path:       path,
		CreatedAt:  now,
		ModifiedAt: now,
		Meta:       make(map[string]any),
		Contents:   contents,
	}
}

// SerializedFile is a transfer-safe snapshot of a File. It is created per
// dispatch, consumed once on the other side of the worker boundary, and
// discarded after merge.
type SerializedFile struct {
	Path       string
	CreatedAt  time.Time
	ModifiedAt time.Time
	Meta       map[string]any
	Contents   []byte
}

// BuildError attributes a failure to a specific (plugin, file) pair.
// A zero Path means the error is phase- or pipeline-scoped.
type BuildError struct {
	Plugin  string `json:"plugin"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e BuildError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Plugin, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Plugin, e.Path, e.Message)
}

// PhaseTiming records the execution of a single scheduled phase.
type PhaseTiming struct {
	Kind          PhaseKind                `json:"kind"`
	Plugins       []string                 `json:"plugins"`
	Files         int                      `json:"files"`
	Duration      time.Duration            `json:"duration"`
	PluginTimings map[string]time.Duration `json:"pluginTimings,omitempty"`
}

// BuildSummary is the immutable report of one completed build run.
// It is assembled once at the end of a run and never mutated afterwards.
type BuildSummary struct {
	RunID       string        `json:"runId"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
	InputFiles  int           `json:"inputFiles"`
	OutputFiles int           `json:"outputFiles"`
	Phases      []PhaseTiming `json:"phases"`
	Errors      []BuildError  `json:"errors,omitempty"`
	State       BuildState    `json:"state"`
}

// PluginConfig selects a registry plugin by name with optional settings.
type PluginConfig struct {
	Name        string         `json:"name" yaml:"name"`
	Options     map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
	Include     []string       `json:"include,omitempty" yaml:"include,omitempty"`
	Exclude     []string       `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	Parallelism int            `json:"parallelism,omitempty" yaml:"parallelism,omitempty"`
}

// NotificationConfig represents notification preferences
type NotificationConfig struct {
	Enabled      *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	SuccessSound string `json:"successSound,omitempty" yaml:"successSound,omitempty"`
	FailureSound string `json:"failureSound,omitempty" yaml:"failureSound,omitempty"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	File  string   `json:"file" yaml:"file"`
	Level LogLevel `json:"level" yaml:"level"`
}

// TransmuteConfig represents the main configuration
type TransmuteConfig struct {
	Version       string              `json:"version" yaml:"version"`
	ProjectName   string              `json:"projectName" yaml:"projectName"`
	SourceDir     string              `json:"sourceDir" yaml:"sourceDir"`
	Workers       int                 `json:"workers,omitempty" yaml:"workers,omitempty"`
	Plugins       []PluginConfig      `json:"plugins,omitempty" yaml:"plugins,omitempty"`
	Context       map[string]any      `json:"context,omitempty" yaml:"context,omitempty"`
	Notifications *NotificationConfig `json:"notifications,omitempty" yaml:"notifications,omitempty"`
	Logging       *LoggingConfig      `json:"logging,omitempty" yaml:"logging,omitempty"`
}
