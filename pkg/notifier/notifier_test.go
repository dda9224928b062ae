package notifier

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/transmute/transmute/pkg/logger"
)

func testLogger() logger.Logger {
	return logger.CreateLoggerWithOutput("error", io.Discard)
}

func TestNotifierDisabledIsSilent(t *testing.T) {
	n := New(Config{Enabled: false}, testLogger())

	// A disabled notifier never reaches the OS notification layer.
	n.NotifyBuildStart("docs-site")
	n.NotifyBuildSuccess("docs-site", time.Second)
	n.NotifyBuildFailure("docs-site", errors.New("boom"))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "500ms"},
		{1500 * time.Millisecond, "1.5s"},
		{45 * time.Second, "45.0s"},
		{90 * time.Second, "1m30s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
