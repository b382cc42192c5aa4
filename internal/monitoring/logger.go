package monitoring

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger provides structured JSON logging for the decision pipeline
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new structured logger writing JSON to stdout
func NewLogger() *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// RequestLogger logs HTTP request details
func (l *Logger) RequestLogger(method, path, ip, userAgent string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"method", method,
		"path", path,
		"ip", ip,
		"user_agent", userAgent,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// DecisionLogger logs one engine evaluation
func (l *Logger) DecisionLogger(component, claimID string, score float64, outcome string, duration time.Duration) {
	l.Info("Decision Computed",
		"component", component,
		"claim_id", claimID,
		"score", score,
		"outcome", outcome,
		"duration_ms", duration.Milliseconds(),
	)
}

// NudgeLogger logs a scheduled nudge
func (l *Logger) NudgeLogger(claimID string, ordinal int, tone string, sendAt time.Time) {
	l.Info("Nudge Scheduled",
		"claim_id", claimID,
		"ordinal", ordinal,
		"tone", tone,
		"send_at", sendAt.Format(time.RFC3339),
	)
}

// BehaviorAlertLogger logs a suspicious-behavior classification
func (l *Logger) BehaviorAlertLogger(claimantID, behaviorType string, fraudScore float64, anomalies []string) {
	l.Warn("Behavior Alert",
		"claimant_id", claimantID,
		"behavior_type", behaviorType,
		"fraud_score", fraudScore,
		"anomalies", anomalies,
	)
}

// APIErrorLogger logs API errors with request context
func (l *Logger) APIErrorLogger(err error, method, path, ip string, statusCode int) {
	l.Error("API Error",
		"error", err.Error(),
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
	)
}

// ProviderLogger logs calls to the external activity provider
func (l *Logger) ProviderLogger(provider, operation string, statusCode int, duration time.Duration, success bool) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}

	l.Log(context.Background(), level, "Provider Call",
		"provider", provider,
		"operation", operation,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
		"success", success,
	)
}

// SystemLogger logs system-level events
func (l *Logger) SystemLogger(event, details string) {
	l.Info("System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(startTime).String(),
	)
}

// PerformanceLogger logs performance metrics
func (l *Logger) PerformanceLogger(metric string, value float64, unit string) {
	l.Info("Performance Metric",
		"metric", metric,
		"value", value,
		"unit", unit,
	)
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level slog.Level) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	})
	l.Logger = slog.New(handler)
}

var startTime = time.Now()
