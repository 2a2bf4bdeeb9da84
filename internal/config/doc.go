// Package config loads the lineage configuration and builds an Engine
// from it.
//
// A configuration is resolved in three layers: Default, then the YAML file
// (unknown keys are rejected), then the LINEAGE_POLICY and LINEAGE_VERBOSE
// environment variables. The result is checked against an embedded CUE
// schema before Build wires sinks, queue and stores into an Engine. The
// policy is fixed once Build returns.
package config
