package sink

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sink is an external destination for lineage events.
type Sink interface {
	// Write delivers one event.
	Write(ctx context.Context, event *Event) error

	// Close releases any resources held by the sink.
	Close() error

	// Name returns the sink's identifier.
	Name() string
}

// LogSink writes events to a structured logger at debug level.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a new LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("lineage")}
}

// Write logs the event. It returns at once when debug logging is off.
func (s *LogSink) Write(_ context.Context, event *Event) error {
	if !s.logger.Core().Enabled(zapcore.DebugLevel) {
		return nil
	}
	fields := []zap.Field{
		zap.String("process", event.Process),
		zap.Int64("id", event.ID),
		zap.Float64("value", float64(event.Value)),
		zap.Time("timestamp", event.Timestamp),
	}
	if event.Label != "" {
		fields = append(fields, zap.String("label", event.Label))
	}
	if event.Template != "" {
		fields = append(fields, zap.String("template", event.Template))
	}
	if len(event.Parents) > 0 {
		ids := make([]int64, len(event.Parents))
		for i, p := range event.Parents {
			ids[i] = p.ID
		}
		fields = append(fields, zap.Int64s("parents", ids))
	}
	if event.Origin != "" {
		fields = append(fields, zap.String("origin", event.Origin))
	}

	s.logger.Debug("lineage_record", fields...)
	return nil
}

// Close is a no-op for LogSink.
func (s *LogSink) Close() error {
	return nil
}

// Name returns the sink identifier.
func (s *LogSink) Name() string {
	return "log"
}

// MultiSink writes every event to several sinks in turn.
type MultiSink struct {
	sinks  []Sink
	logger *zap.Logger
}

// NewMultiSink creates a sink that writes to multiple destinations.
func NewMultiSink(sinks []Sink, logger *zap.Logger) *MultiSink {
	return &MultiSink{
		sinks:  sinks,
		logger: logger,
	}
}

// Write sends the event to all sinks. A failing sink does not stop the
// others; all errors are returned joined.
func (s *MultiSink) Write(ctx context.Context, event *Event) error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Write(ctx, event); err != nil {
			s.logger.Warn("lineage sink write failed",
				zap.String("sink", sink.Name()),
				zap.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes all sinks.
func (s *MultiSink) Close() error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Name returns the sink identifier.
func (s *MultiSink) Name() string {
	return "multi"
}
