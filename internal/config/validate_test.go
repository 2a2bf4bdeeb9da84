package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		problem string
	}{
		{name: "default", mutate: func(*Config) {}},
		{
			name:   "kafka sink",
			mutate: func(c *Config) { c.External.Sinks = []SinkConfig{{Type: SinkKafka, Brokers: []string{"localhost:9092"}, Topic: "lineage", Compression: "zstd"}} },
		},
		{
			name:   "log sink",
			mutate: func(c *Config) { c.External.Sinks = []SinkConfig{{Type: SinkLog}} },
		},
		{
			name:    "unknown policy",
			mutate:  func(c *Config) { c.Policy = "everywhere" },
			problem: "policy",
		},
		{
			name:    "zero capacity",
			mutate:  func(c *Config) { c.Capacity = 0 },
			problem: "capacity",
		},
		{
			name:    "unknown failure mode",
			mutate:  func(c *Config) { c.FailureMode = "graph" },
			problem: "failure_mode",
		},
		{
			name:    "unknown output",
			mutate:  func(c *Config) { c.Output = "syslog" },
			problem: "output",
		},
		{
			name:    "no workers",
			mutate:  func(c *Config) { c.External.Workers = 0 },
			problem: "workers",
		},
		{
			name:    "unknown sink type",
			mutate:  func(c *Config) { c.External.Sinks = []SinkConfig{{Type: "s3"}} },
			problem: "sinks",
		},
		{
			name:    "jsonl without path",
			mutate:  func(c *Config) { c.External.Sinks = []SinkConfig{{Type: SinkJSONL}} },
			problem: "path",
		},
		{
			name:    "kafka without brokers",
			mutate:  func(c *Config) { c.External.Sinks = []SinkConfig{{Type: SinkKafka, Topic: "lineage"}} },
			problem: "brokers",
		},
		{
			name:    "kafka without topic",
			mutate:  func(c *Config) { c.External.Sinks = []SinkConfig{{Type: SinkKafka, Brokers: []string{"b:9092"}}} },
			problem: "topic",
		},
		{
			name: "unknown compression",
			mutate: func(c *Config) {
				c.External.Sinks = []SinkConfig{{Type: SinkKafka, Brokers: []string{"b:9092"}, Topic: "t", Compression: "brotli"}}
			},
			problem: "compression",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := Validate(cfg)

			if tt.problem == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			require.NotEmpty(t, ve.Problems)
			assert.True(t, strings.Contains(strings.Join(ve.Problems, "\n"), tt.problem),
				"problems %q should mention %q", ve.Problems, tt.problem)
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Problems: []string{"policy: bad", "capacity: bad"}}

	assert.Equal(t, "invalid config: policy: bad; capacity: bad", err.Error())
}
