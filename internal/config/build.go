package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/roach88/lineage/internal/engine"
	"github.com/roach88/lineage/internal/sink"
	"github.com/roach88/lineage/internal/store"
	"github.com/roach88/lineage/internal/trail"
)

// Build validates cfg and returns an Engine wired as it describes. The
// caller owns the Engine and must Close it to flush external sinks.
func Build(cfg Config, logger *zap.Logger) (*engine.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	backend, err := engine.ParseBackend(cfg.Policy)
	if err != nil {
		return nil, err
	}
	mode, err := trail.ParseMode(cfg.FailureMode)
	if err != nil {
		return nil, err
	}

	opts := []engine.EngineOption{
		engine.WithPolicy(engine.Policy{Backend: backend, Verbose: cfg.Verbose}),
		engine.WithCapacity(cfg.Capacity),
		engine.WithLogger(logger.Named("engine")),
		engine.WithOutput(output(cfg.Output)),
		engine.WithOriginCapture(cfg.CaptureOrigin),
		engine.WithFailureMode(mode),
		engine.WithBridge(engine.NewBridge(cfg.Bridge.ClearOnRead)),
	}

	if backend == engine.External || backend == engine.Dual {
		s, err := OpenSinks(cfg.External.Sinks, logger.Named("sink"))
		if err != nil {
			return nil, err
		}
		q := sink.NewQueue(s, sink.QueueConfig{
			QueueSize:  cfg.External.QueueSize,
			Workers:    cfg.External.Workers,
			DropOnFull: cfg.External.DropOnFull,
		}, logger.Named("queue"))

		var b store.Backend = store.NewExternal(q)
		if backend == engine.Dual {
			b = store.NewDual(store.NewRing(cfg.Capacity), b)
		}
		opts = append(opts, engine.WithBackend(b))
	}

	return engine.New(opts...), nil
}

// OpenSinks opens every configured sink. Several sinks are combined into a
// MultiSink; none means the debug log. On error the sinks already opened
// are closed.
func OpenSinks(configs []SinkConfig, logger *zap.Logger) (sink.Sink, error) {
	if len(configs) == 0 {
		return sink.NewLogSink(logger), nil
	}

	sinks := make([]sink.Sink, 0, len(configs))
	for i, c := range configs {
		s, err := openSink(c, logger)
		if err != nil {
			closeErr := closeAll(sinks)
			return nil, errors.Join(fmt.Errorf("sinks[%d] (%s): %w", i, c.Type, err), closeErr)
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sink.NewMultiSink(sinks, logger), nil
}

func openSink(c SinkConfig, logger *zap.Logger) (sink.Sink, error) {
	switch c.Type {
	case SinkLog:
		return sink.NewLogSink(logger), nil
	case SinkJSONL:
		return sink.OpenJSONL(c.Path)
	case SinkSQLite:
		return sink.OpenSQLite(c.Path)
	case SinkKafka:
		return sink.NewKafkaSink(sink.KafkaConfig{
			Brokers:     c.Brokers,
			Topic:       c.Topic,
			BatchSize:   c.BatchSize,
			Compression: c.Compression,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown sink type %q", c.Type)
	}
}

func closeAll(sinks []sink.Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func output(name string) io.Writer {
	switch name {
	case "stdout":
		return os.Stdout
	case "discard":
		return io.Discard
	default:
		return os.Stderr
	}
}
