package usagelog

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogrusRecorder writes usage entries to the application log. It is the
// default recorder when no persistent backend is configured.
type LogrusRecorder struct {
	logger *logrus.Logger
}

// NewLogrusRecorder creates a log-backed recorder. A nil logger uses the
// standard logrus instance.
func NewLogrusRecorder(logger *logrus.Logger) *LogrusRecorder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusRecorder{logger: logger}
}

// Record implements Recorder.
func (r *LogrusRecorder) Record(_ context.Context, entry Entry) {
	fields := logrus.Fields{
		"source":     entry.Source,
		"success":    entry.Success,
		"latency_ms": entry.LatencyMs,
	}
	if entry.Endpoint != "" {
		fields["endpoint"] = entry.Endpoint
	}
	if entry.Username != "" {
		fields["username"] = entry.Username
	}

	if entry.Success {
		r.logger.WithFields(fields).Info("upstream fetch succeeded")
		return
	}
	fields["error"] = entry.ErrorMessage
	r.logger.WithFields(fields).Warn("upstream fetch failed")
}
