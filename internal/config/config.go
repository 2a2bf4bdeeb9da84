package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvPolicy  = "LINEAGE_POLICY"
	EnvVerbose = "LINEAGE_VERBOSE"
)

// Sink types.
const (
	SinkLog    = "log"
	SinkJSONL  = "jsonl"
	SinkSQLite = "sqlite"
	SinkKafka  = "kafka"
)

// Config is the complete engine configuration.
type Config struct {
	// Policy is one of none, internal, external or dual.
	Policy string `yaml:"policy" json:"policy"`

	// Verbose makes failed checks advisory.
	Verbose bool `yaml:"verbose" json:"verbose"`

	// Capacity is the number of records the in-memory ring retains.
	Capacity int `yaml:"capacity" json:"capacity"`

	// FailureMode is the trail format written when a check fails.
	FailureMode string `yaml:"failure_mode" json:"failure_mode"`

	CaptureOrigin bool `yaml:"capture_origin" json:"capture_origin"`

	// Output is where trails go: stderr, stdout or discard.
	Output string `yaml:"output" json:"output"`

	Bridge   BridgeConfig   `yaml:"bridge" json:"bridge"`
	External ExternalConfig `yaml:"external" json:"external"`
}

// BridgeConfig configures channel continuity.
type BridgeConfig struct {
	ClearOnRead bool `yaml:"clear_on_read" json:"clear_on_read"`
}

// ExternalConfig configures delivery to external sinks. It is ignored
// unless the policy is external or dual.
type ExternalConfig struct {
	QueueSize  int          `yaml:"queue_size" json:"queue_size"`
	Workers    int          `yaml:"workers" json:"workers"`
	DropOnFull bool         `yaml:"drop_on_full" json:"drop_on_full"`
	Sinks      []SinkConfig `yaml:"sinks" json:"sinks"`
}

// SinkConfig describes one external sink. With no sinks configured,
// records go to the debug log.
type SinkConfig struct {
	Type        string   `yaml:"type" json:"type"`
	Path        string   `yaml:"path,omitempty" json:"path"`
	Brokers     []string `yaml:"brokers,omitempty" json:"brokers"`
	Topic       string   `yaml:"topic,omitempty" json:"topic"`
	Compression string   `yaml:"compression,omitempty" json:"compression"`
	BatchSize   int      `yaml:"batch_size,omitempty" json:"batch_size"`
}

// Default returns the configuration used when nothing is configured.
func Default() Config {
	return Config{
		Policy:        "dual",
		Capacity:      1 << 16,
		FailureMode:   "table",
		CaptureOrigin: true,
		Output:        "stderr",
		External: ExternalConfig{
			QueueSize:  10000,
			Workers:    1,
			DropOnFull: true,
		},
	}
}

// Load reads the YAML file at path over Default and applies environment
// overrides. An empty path skips the file. The result is not validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over Default without consulting the environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := decode(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPolicy); ok && strings.TrimSpace(v) != "" {
		cfg.Policy = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvVerbose); ok && strings.TrimSpace(v) != "" {
		verbose, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvVerbose, v, err)
		}
		cfg.Verbose = verbose
	}
	return nil
}
