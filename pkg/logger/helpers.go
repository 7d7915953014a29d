package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogQueryStart logs the start of one planned query
func LogQueryStart(l Logger, term, source string, index, total int) {
	l.InfoWithFields("Fetching query", map[string]interface{}{
		"term":     term,
		"source":   source,
		"query":    index + 1,
		"of":       total,
		"progress": fmt.Sprintf("%.0f%%", float64(index)/float64(max(total, 1))*100),
	})
}

// LogQuerySkipped logs a query that produced no results because it was skipped
func LogQuerySkipped(l Logger, term, source, reason string, err error) {
	l = l.WithFields(map[string]interface{}{
		"term":   term,
		"source": source,
		"reason": reason,
	})
	if err != nil {
		l = l.WithError(err)
	}
	l.Warn("Query skipped")
}

// LogPacingWait logs how long the pacing controller held the flow
func LogPacingWait(l Logger, waited time.Duration, requestCount int) {
	l.DebugWithFields("Pacing wait complete", map[string]interface{}{
		"waited":        waited,
		"request_count": requestCount,
	})
}

// LogRunSummary logs the end-of-run counters
func LogRunSummary(l Logger, counters map[string]interface{}) {
	fields := map[string]interface{}{"type": "run_summary"}
	for k, v := range counters {
		fields[k] = v
	}
	l.InfoWithFields("Run finished", fields)
}

// LogComponentStart logs when a component starts
func LogComponentStart(component string, config map[string]interface{}) {
	logger := GetLogger().WithField("component", component)
	if len(config) > 0 {
		logger = logger.WithFields(config)
	}
	logger.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(component string, reason string) {
	GetLogger().WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// Printf adapts a Logger to the printf-style sinks some libraries accept
func Printf(l Logger) func(string, ...interface{}) {
	return func(format string, args ...interface{}) {
		l.Debug(fmt.Sprintf(format, args...))
	}
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}

func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
