package config

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// ValidationError lists every schema violation found in a configuration.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

var (
	// mu serializes use of the shared cue.Context.
	mu         sync.Mutex
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schema     cue.Value
	schemaErr  error
)

func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compiling config schema: %w", err)
			return
		}
		schema = v.LookupPath(cue.ParsePath("#Config"))
	})
	return schemaCtx, schema, schemaErr
}

// Validate checks cfg against the schema. Schema violations are reported
// as a *ValidationError.
func Validate(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	ctx, def, err := loadSchema()
	if err != nil {
		return err
	}

	v := ctx.Encode(normalize(cfg))
	if err := v.Err(); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		var problems []string
		for _, e := range cueerrors.Errors(err) {
			problems = append(problems, describe(e))
		}
		return &ValidationError{Problems: problems}
	}
	return nil
}

// normalize replaces nil slices, which encode as null, with empty ones.
func normalize(cfg Config) Config {
	sinks := make([]SinkConfig, len(cfg.External.Sinks))
	for i, s := range cfg.External.Sinks {
		if s.Brokers == nil {
			s.Brokers = []string{}
		}
		sinks[i] = s
	}
	cfg.External.Sinks = sinks
	return cfg
}

func describe(e cueerrors.Error) string {
	format, args := e.Msg()
	msg := fmt.Sprintf(format, args...)
	if path := strings.Join(e.Path(), "."); path != "" {
		return path + ": " + msg
	}
	return msg
}
