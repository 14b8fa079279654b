package mission

import (
	"context"
	"log/slog"
)

// LogSink writes every event to a logger at debug level.
type LogSink struct {
	Logger *slog.Logger
}

// Publish implements Sink.
func (s LogSink) Publish(ctx context.Context, missionID string, ev Event) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"mission_id", missionID, "type", ev.Type}
	switch ev.Type {
	case EventStatus:
		attrs = append(attrs, "step", ev.Step)
	case EventData:
		attrs = append(attrs, "key", ev.Key)
	case EventError:
		attrs = append(attrs, "source", ev.Source)
	}
	if ev.Message != "" {
		attrs = append(attrs, "message", ev.Message)
	}
	logger.DebugContext(ctx, "mission event", attrs...)
	return nil
}
