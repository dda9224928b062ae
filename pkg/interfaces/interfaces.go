// Package interfaces provides abstractions for dependency injection and testability
package interfaces

import (
	"time"

	"github.com/transmute/transmute/pkg/types"
)

// BuildNotifier handles build notifications
type BuildNotifier interface {
	NotifyBuildStart(project string)
	NotifyBuildSuccess(project string, duration time.Duration)
	NotifyBuildFailure(project string, err error)
}

// SummaryStore persists build summaries between runs
type SummaryStore interface {
	Save(project string, summary *types.BuildSummary) error
	Load(project string) (*types.BuildSummary, error)
	Cleanup() error
}

// PipelineDependencies contains the injectable collaborators of a pipeline.
// Nil fields are simply skipped; the pipeline core has no hard dependency
// on either.
type PipelineDependencies struct {
	Notifier     BuildNotifier
	SummaryStore SummaryStore
}
