// Package notifier provides desktop build notifications
package notifier

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/transmute/transmute/pkg/logger"
)

// BuildNotifier sends desktop notifications for pipeline runs
type BuildNotifier struct {
	enabled      bool
	successSound string
	failureSound string
	logger       logger.Logger
}

// Config represents notification configuration
type Config struct {
	Enabled      bool
	SuccessSound string
	FailureSound string
}

// New creates a new build notifier
func New(config Config, log logger.Logger) *BuildNotifier {
	return &BuildNotifier{
		enabled:      config.Enabled,
		successSound: config.SuccessSound,
		failureSound: config.FailureSound,
		logger:       log,
	}
}

// NotifyBuildStart notifies that a build has started
func (n *BuildNotifier) NotifyBuildStart(project string) {
	if !n.enabled {
		return
	}

	n.send("⚗ Transmute", fmt.Sprintf("Building %s...", project), "")
}

// NotifyBuildSuccess notifies that a build succeeded
func (n *BuildNotifier) NotifyBuildSuccess(project string, duration time.Duration) {
	if !n.enabled {
		return
	}

	message := fmt.Sprintf("%s built in %s", project, formatDuration(duration))
	n.send("✅ Build Succeeded", message, n.successSound)
}

// NotifyBuildFailure notifies that a build failed
func (n *BuildNotifier) NotifyBuildFailure(project string, err error) {
	if !n.enabled {
		return
	}

	n.send("❌ Build Failed", fmt.Sprintf("%s: %v", project, err), n.failureSound)
}

func (n *BuildNotifier) send(title, message, soundName string) {
	if err := beeep.Notify(title, message, ""); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithField("error", err))
	}

	if soundName != "" {
		if err := beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			n.logger.Debug("Failed to play sound", logger.WithField("error", err))
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
